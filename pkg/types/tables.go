package types

// Standard table names for Store.GetTable.
const (
	TableRecords           = "records"
	TableMediaObjects      = "media_objects"
	TableMediaTypes        = "media_types"
	TableCharsets          = "charsets"
	TableTransferEncodings = "transfer_encodings"
	TableSchemas           = "schemas"
)

// StandardTableNames lists all standard table names for enumeration.
var StandardTableNames = []string{
	TableRecords,
	TableMediaObjects,
	TableMediaTypes,
	TableCharsets,
	TableTransferEncodings,
	TableSchemas,
}

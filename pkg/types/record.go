package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// SchemaURI is the persistent identifier of GenPub Core v1.
const SchemaURI = "https://example.org/schema/genpub_core/v1"

// SchemaID is the UUIDv5 derived from SchemaURI in the URL namespace.
var SchemaID = DeriveSchemaID(SchemaURI)

// URI is a generic publication locator such as udp://host:port,
// s3://bucket/object or file:///path.
type URI string

// Record is a single unit of data generation and publication metadata.
// Records are created through NewRecord or FromMap, which guarantee that the
// generator name and domain pass validation.
type Record struct {
	ID         uuid.UUID `json:"id" validate:"required"`
	GenName    string    `json:"gen_name" validate:"required,pubname"`
	GenDomain  string    `json:"gen_domain" validate:"required,pubname"`
	GenTime    time.Time `json:"gen_time"`
	PubLocator URI       `json:"pub_locator"`
	PubTime    time.Time `json:"pub_time"`
	Data       []byte    `json:"data"`
}

// NewRecord builds a validated Record with a fresh UUIDv4. Names are
// normalized to NFC and timestamps are converted to UTC.
func NewRecord(genName, genDomain string, genTime time.Time, locator URI, pubTime time.Time, data []byte) (*Record, error) {
	r := &Record{
		ID:         uuid.New(),
		GenName:    norm.NFC.String(genName),
		GenDomain:  norm.NFC.String(genDomain),
		GenTime:    genTime.UTC(),
		PubLocator: locator,
		PubTime:    pubTime.UTC(),
		Data:       data,
	}
	if r.Data == nil {
		r.Data = []byte{}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// ToMap serializes the record with ISO 8601 timestamps and the schema
// identity. The data value stays a []byte.
func (r *Record) ToMap() map[string]any {
	return map[string]any{
		"schema_uri":  SchemaURI,
		"schema_id":   SchemaID.String(),
		"id":          r.ID.String(),
		"gen_name":    r.GenName,
		"gen_domain":  r.GenDomain,
		"gen_time":    FormatISOTime(r.GenTime),
		"pub_locator": string(r.PubLocator),
		"pub_time":    FormatISOTime(r.PubTime),
		"data":        r.Data,
	}
}

// FromMap deserializes a record produced by ToMap. The schema URI and schema
// ID must match this schema version. A string data value is taken as its
// UTF-8 bytes. A missing id produces a fresh UUIDv4.
func FromMap(obj map[string]any) (*Record, error) {
	uri, _ := obj["schema_uri"].(string)
	if uri != SchemaURI {
		return nil, fmt.Errorf("%w: expected %s, got %v", ErrSchemaMismatch, SchemaURI, obj["schema_uri"])
	}
	rawID, _ := obj["schema_id"].(string)
	schemaID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("%w: schema_id %q: %v", ErrSchemaMismatch, rawID, err)
	}
	if schemaID != SchemaID {
		return nil, fmt.Errorf("%w: expected schema_id %s, got %s", ErrSchemaMismatch, SchemaID, schemaID)
	}

	r := &Record{}
	if v, ok := obj["id"]; ok && v != nil {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: id must be a string", ErrInvalidID)
		}
		if r.ID, err = uuid.Parse(s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
	} else {
		r.ID = uuid.New()
	}

	if r.GenName, err = stringField(obj, "gen_name"); err != nil {
		return nil, err
	}
	if r.GenDomain, err = stringField(obj, "gen_domain"); err != nil {
		return nil, err
	}

	locator, err := stringField(obj, "pub_locator")
	if err != nil {
		return nil, err
	}
	r.PubLocator = URI(locator)

	if r.GenTime, err = timeField(obj, "gen_time"); err != nil {
		return nil, err
	}
	if r.PubTime, err = timeField(obj, "pub_time"); err != nil {
		return nil, err
	}

	switch d := obj["data"].(type) {
	case []byte:
		r.Data = d
	case string:
		r.Data = []byte(d)
	default:
		return nil, fmt.Errorf("%w: data must be bytes or string, got %T", ErrInvalidData, obj["data"])
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func stringField(obj map[string]any, key string) (string, error) {
	v, ok := obj[key]
	if !ok {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidData, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidData, key, v)
	}
	return s, nil
}

func timeField(obj map[string]any, key string) (time.Time, error) {
	s, err := stringField(obj, key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseISOTime(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

// recordJSON is the wire form of a Record: the ToMap keys with data encoded
// as base64.
type recordJSON struct {
	SchemaURI  string `json:"schema_uri"`
	SchemaID   string `json:"schema_id"`
	ID         string `json:"id,omitempty"`
	GenName    string `json:"gen_name"`
	GenDomain  string `json:"gen_domain"`
	GenTime    string `json:"gen_time"`
	PubLocator string `json:"pub_locator"`
	PubTime    string `json:"pub_time"`
	Data       []byte `json:"data"`
}

// MarshalJSON encodes the record with its schema identity.
func (r Record) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []byte{}
	}
	return json.Marshal(recordJSON{
		SchemaURI:  SchemaURI,
		SchemaID:   SchemaID.String(),
		ID:         r.ID.String(),
		GenName:    r.GenName,
		GenDomain:  r.GenDomain,
		GenTime:    FormatISOTime(r.GenTime),
		PubLocator: string(r.PubLocator),
		PubTime:    FormatISOTime(r.PubTime),
		Data:       data,
	})
}

// UnmarshalJSON decodes the wire form, enforcing the same schema checks and
// validation as FromMap.
func (r *Record) UnmarshalJSON(b []byte) error {
	var w recordJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	obj := map[string]any{
		"schema_uri":  w.SchemaURI,
		"schema_id":   w.SchemaID,
		"gen_name":    w.GenName,
		"gen_domain":  w.GenDomain,
		"gen_time":    w.GenTime,
		"pub_locator": w.PubLocator,
		"pub_time":    w.PubTime,
		"data":        w.Data,
	}
	if w.Data == nil {
		obj["data"] = []byte{}
	}
	if w.ID != "" {
		obj["id"] = w.ID
	}
	decoded, err := FromMap(obj)
	if err != nil {
		return err
	}
	*r = *decoded
	return nil
}

// isoLayouts are tried in order by ParseISOTime. Layouts without a zone
// offset are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04",
	"2006-01-02T15",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseISOTime parses an ISO 8601 timestamp and returns it in UTC.
func ParseISOTime(s string) (time.Time, error) {
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not ISO 8601", ErrInvalidTimestamp, s)
}

// FormatISOTime renders t in UTC as RFC 3339 with nanoseconds.
func FormatISOTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

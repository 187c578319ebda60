// Package types defines the Store and Table interfaces, the GenPub Core
// record, media objects with their reference taxonomies, the schema
// registry entry, and the standard errors for the GenPub storage system.
package types

// Package dto holds the data transfer objects exchanged with the project
// management backend.
//
// The backend is authoritative for every entity; the client only decodes what
// it receives and encodes request bodies. Wire variants that differ between
// endpoints (task ids, file names) are collapsed into one type here, at the
// API boundary, so the rest of the module never sees them.
package dto

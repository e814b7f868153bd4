// Package store keeps client state in a SQLite file.
//
// It stands in for browser local storage: a flat table of string values
// under string keys that survives restarts. Values are opaque here; callers
// serialize them. The file runs in WAL mode with a 5 second busy timeout,
// and its layout is versioned with PRAGMA user_version.
package store

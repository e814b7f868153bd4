// Package listview filters and orders the project and staff lists the
// dashboard shows, and renders their count captions.
//
// Every function returns a new slice; inputs are never modified.
package listview

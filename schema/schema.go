// Package schema has models, enums and shared constants for all parts of indexhist.
package schema

import (
	"strings"
	"time"
)

// Point is a single normalized observation of an index.
type Point struct {
	Timestamp time.Time `json:"timestamp"` // Observation time as reported by the source
	Value     float64   `json:"value"`     // Index value at Timestamp
}

// SeriesKey identifies which history of which index is requested.
type SeriesKey struct {
	Index  string // Index name as given by the caller (e.g. "tipous")
	Period Period // Historical range selector
}

// Unit returns the storage unit identifier for the key, which is the upper-cased index name.
func (k SeriesKey) Unit() string {
	return UnitName(k.Index)
}

// Slug returns the lower-cased index name used in producer URLs.
func (k SeriesKey) Slug() string {
	return strings.ToLower(strings.TrimSpace(k.Index))
}

// UnitName normalizes an index name into its storage unit identifier.
func UnitName(index string) string {
	return strings.ToUpper(strings.TrimSpace(index))
}

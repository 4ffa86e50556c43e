package models

import "time"

// RecordClass distinguishes the two kinds of records held by a catalog
type RecordClass string

const (
	ClassImage RecordClass = "images"
	ClassShape RecordClass = "shapes"
)

// CompleteID is the reserved id of the completion sentinel row
const CompleteID = "COMPLETE"

// Point is a coordinate pair in the space returned by the geometry provider
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// ImageRecord represents a scanned raster tile
type ImageRecord struct {
	ID           string    `json:"id"`
	OriginalPath string    `json:"original_path"`
	OutputPath   string    `json:"output_path,omitempty"` // empty until copied
	Centroid     *Point    `json:"centroid,omitempty"`    // nil when geometry could not be computed
	MatchedTo    string    `json:"matched_to,omitempty"`  // ShapeRecord.ID, empty when unmatched
	LastAccess   time.Time `json:"last_access"`
}

// ShapeRecord represents a scanned PIXEL boundary shapefile
type ShapeRecord struct {
	ID           string    `json:"id"`
	OriginalPath string    `json:"original_path"`
	OutputPath   string    `json:"output_path,omitempty"`
	Centroid     *Point    `json:"centroid,omitempty"`
	LastAccess   time.Time `json:"last_access"`
}

// MatchMethod records which pass produced a match
type MatchMethod string

const (
	MatchNone       MatchMethod = "none"
	MatchIdentifier MatchMethod = "identifier"
	MatchCentroid   MatchMethod = "centroid"
	MatchCached     MatchMethod = "cached"
)

// MatchResult pairs an image with its best candidate shape
type MatchResult struct {
	ImageID  string      `json:"image_id"`
	ShapeID  string      `json:"shape_id,omitempty"` // empty when no match was found
	Distance *float64    `json:"distance,omitempty"` // only set by the centroid pass
	Method   MatchMethod `json:"method"`
}

// Matched reports whether the result carries a shape
func (m MatchResult) Matched() bool {
	return m.ShapeID != ""
}

// ManifestEntry is a single line of the copy audit trail
type ManifestEntry struct {
	Timestamp   time.Time
	Source      string
	Destination string
}

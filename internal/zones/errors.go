package zones

import "fmt"

// DataLoadError reports missing or malformed bundled zone data. It indicates
// a packaging defect and is not retryable.
type DataLoadError struct {
	// File is the data file name relative to the data root.
	File string

	// Line is the 1-based line number for line-delimited files, 0 otherwise.
	Line int

	Err error
}

func (e *DataLoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("zone data %s:%d: %v", e.File, e.Line, e.Err)
	}
	return fmt.Sprintf("zone data %s: %v", e.File, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// NoZoneFoundError is returned when no zone contains a coordinate.
type NoZoneFoundError struct {
	Point Point
}

func (e *NoZoneFoundError) Error() string {
	return fmt.Sprintf("no zone contains %s; the zone table may need a region added for this location", e.Point)
}

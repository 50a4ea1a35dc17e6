// Package geos implements the normalized geostationary projection used by
// meteorological ground segments (CGMS LRIT/HRIT Global Specification,
// MSG mission specific implementation EUM/MSG/SPE/057).
//
// The projection maps between image pixel coordinates (column, row) of a
// fixed-position imager and geographic latitude/longitude. All functions
// are pure and safe for concurrent use; a ScanGeometry is a plain value and
// is never modified.
package geos

import (
	"errors"
	"fmt"
)

var (
	// ErrInvisible is returned when a pixel looks past the Earth limb or a
	// geographic point is not visible from the satellite. It is expected and
	// frequent, callers normally skip the pixel.
	ErrInvisible = errors.New("geos: point not visible from satellite")

	// ErrOutOfRange is returned when a geographic coordinate lies outside the
	// valid latitude/longitude bounds.
	ErrOutOfRange = errors.New("geos: coordinate out of range")
)

// UndefinedPixel is returned alongside an error by the geodetic-to-pixel
// conversions.
var UndefinedPixel = Pixel{Column: -999, Row: -999}

// Pixel is an image position. It has no intrinsic bounds.
type Pixel struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// ScanGeometry holds the per-sensor scaling coefficients.
// The scaling functions are x = 2^16·(column−ColumnOffset)/ColumnScalingFactor
// and y = 2^16·(row−LineOffset)/LineScalingFactor.
type ScanGeometry struct {
	SubLongitudeDeg     float64 `json:"sub_longitude"`
	ColumnOffset        int64   `json:"column_offset"`
	LineOffset          int64   `json:"line_offset"`
	ColumnScalingFactor int64   `json:"column_scaling_factor"`
	LineScalingFactor   int64   `json:"line_scaling_factor"`
}

// MSG full-disk coefficients for the 3 km channels.
const (
	MSGOffset        = 1856
	MSGScalingFactor = 13642337
)

// FullDisk returns the MSG full-disk scan geometry for a satellite parked
// at the given longitude.
func FullDisk(subLonDeg float64) ScanGeometry {
	return ScanGeometry{
		SubLongitudeDeg:     subLonDeg,
		ColumnOffset:        MSGOffset,
		LineOffset:          MSGOffset,
		ColumnScalingFactor: MSGScalingFactor,
		LineScalingFactor:   MSGScalingFactor,
	}
}

// Validate checks that the scaling factors are usable.
func (s ScanGeometry) Validate() error {
	if s.ColumnScalingFactor == 0 {
		return fmt.Errorf("column scaling factor must be nonzero")
	}
	if s.LineScalingFactor == 0 {
		return fmt.Errorf("line scaling factor must be nonzero")
	}
	if s.SubLongitudeDeg < -180 || s.SubLongitudeDeg > 180 {
		return fmt.Errorf("sub-satellite longitude %.3f outside [-180, 180]", s.SubLongitudeDeg)
	}
	return nil
}

// Nadir returns the pixel that looks straight down at the sub-satellite point.
func (s ScanGeometry) Nadir() Pixel {
	return Pixel{Column: int(s.ColumnOffset), Row: int(s.LineOffset)}
}

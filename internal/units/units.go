// Package units converts caller-facing millimeter and degree values into the
// host's internal length and angle units, and coerces loosely typed
// parameter values into the host's storage kinds.
//
// All functions are stateless and safe for concurrent use.
package units

import (
	"math"

	"github.com/roach88/bimbridge/internal/ir"
)

// MMPerFoot is the number of millimeters in one internal length unit.
const MMPerFoot = 304.8

// SquareMetersPerSquareFoot converts internal areas for reporting.
const SquareMetersPerSquareFoot = 0.09290304

// Measure is the declared unit kind of a numeric parameter.
type Measure int

const (
	// MeasureNone is a unitless number (counts, ratios).
	MeasureNone Measure = iota
	// MeasureLength is a length; wire values are millimeters.
	MeasureLength
	// MeasureAngle is an angle; wire values are degrees.
	MeasureAngle
)

func (m Measure) String() string {
	switch m {
	case MeasureLength:
		return "length"
	case MeasureAngle:
		return "angle"
	default:
		return "none"
	}
}

// MMToInternal converts millimeters to internal length units.
func MMToInternal(mm float64) float64 {
	return mm / MMPerFoot
}

// InternalToMM converts internal length units to millimeters.
func InternalToMM(v float64) float64 {
	return v * MMPerFoot
}

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadiansToDegrees converts radians to degrees.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// PointToInternal converts a millimeter point or vector to internal units.
func PointToInternal(p ir.XYZ) ir.XYZ {
	return ir.XYZ{X: MMToInternal(p.X), Y: MMToInternal(p.Y), Z: MMToInternal(p.Z)}
}

// PointToMM converts an internal point or vector to millimeters.
func PointToMM(p ir.XYZ) ir.XYZ {
	return ir.XYZ{X: InternalToMM(p.X), Y: InternalToMM(p.Y), Z: InternalToMM(p.Z)}
}

// ToInternal converts a wire number to internal units according to m.
func ToInternal(v float64, m Measure) float64 {
	switch m {
	case MeasureLength:
		return MMToInternal(v)
	case MeasureAngle:
		return DegreesToRadians(v)
	default:
		return v
	}
}

// FromInternal is the inverse of ToInternal.
func FromInternal(v float64, m Measure) float64 {
	switch m {
	case MeasureLength:
		return InternalToMM(v)
	case MeasureAngle:
		return RadiansToDegrees(v)
	default:
		return v
	}
}

// AreaToSquareMeters converts an internal area (square feet) to square meters.
func AreaToSquareMeters(sqft float64) float64 {
	return sqft * SquareMetersPerSquareFoot
}

// Round rounds v to the given number of decimal places. Used to keep
// reported measurements free of floating-point noise.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

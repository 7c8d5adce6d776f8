package ir

// XYZ is a point or vector. On the wire its components are millimeters;
// inside the host they are internal length units.
type XYZ struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Add returns p+q.
func (p XYZ) Add(q XYZ) XYZ { return XYZ{p.X + q.X, p.Y + q.Y, p.Z + q.Z} }

// Sub returns p-q.
func (p XYZ) Sub(q XYZ) XYZ { return XYZ{p.X - q.X, p.Y - q.Y, p.Z - q.Z} }

// Scale returns p*f.
func (p XYZ) Scale(f float64) XYZ { return XYZ{p.X * f, p.Y * f, p.Z * f} }

// Dot returns the dot product of p and q.
func (p XYZ) Dot(q XYZ) float64 { return p.X*q.X + p.Y*q.Y + p.Z*q.Z }

// IsZero reports whether all components are zero.
func (p XYZ) IsZero() bool { return p.X == 0 && p.Y == 0 && p.Z == 0 }

// Line is an axis through two points.
type Line struct {
	P0 XYZ `json:"p0"`
	P1 XYZ `json:"p1"`
}

// Plane is a mirror plane. Origin defaults to the first target's location.
type Plane struct {
	Origin *XYZ `json:"origin,omitempty"`
	Normal *XYZ `json:"normal" validate:"required"`
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min XYZ `json:"min"`
	Max XYZ `json:"max"`
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{
		Min: XYZ{min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)},
		Max: XYZ{max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)},
	}
}

// Grow returns b expanded by d on every side.
func (b Box) Grow(d float64) Box {
	return Box{
		Min: b.Min.Sub(XYZ{d, d, d}),
		Max: b.Max.Add(XYZ{d, d, d}),
	}
}

// Center returns the midpoint of b.
func (b Box) Center() XYZ {
	return b.Min.Add(b.Max).Scale(0.5)
}

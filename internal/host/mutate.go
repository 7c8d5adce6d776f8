package host

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/bimbridge/internal/ir"
)

// ErrReadOnly is returned when writing a read-only parameter.
var ErrReadOnly = errors.New("parameter is read-only")

// resolve returns the element or ErrElementNotFound.
func (d *Document) resolve(id ir.ElementID) (*Element, error) {
	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	return e, nil
}

// SetParameterValue writes an already-converted value. The value's Go
// type must match the parameter's storage type.
func (d *Document) SetParameterValue(id ir.ElementID, p *Parameter, value any) error {
	if _, err := d.resolve(id); err != nil {
		return err
	}
	if p.ReadOnly {
		return ErrReadOnly
	}
	switch p.Storage {
	case StorageString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter %q stores text, got %T", p.Name, value)
		}
	case StorageDouble:
		if _, ok := value.(float64); !ok {
			return fmt.Errorf("parameter %q stores a double, got %T", p.Name, value)
		}
	case StorageInteger:
		if _, ok := value.(int64); !ok {
			return fmt.Errorf("parameter %q stores an integer, got %T", p.Name, value)
		}
	case StorageElementID:
		ref, ok := value.(ir.ElementID)
		if !ok {
			return fmt.Errorf("parameter %q stores an element id, got %T", p.Name, value)
		}
		if _, exists := d.elements[ref]; !exists && ref != ir.InvalidElementID {
			return fmt.Errorf("parameter %q: referenced element %d does not exist", p.Name, ref)
		}
	}

	prev := p.Value
	if err := d.record(func() { p.Value = prev }); err != nil {
		return err
	}
	p.Value = value
	return nil
}

// Delete removes ids and everything that depends on them (hosted
// instances, room tags). It returns the ids actually deleted; an empty
// result means nothing could be deleted.
func (d *Document) Delete(ids ...ir.ElementID) ([]ir.ElementID, error) {
	if d.tx == nil {
		return nil, ErrNoTransaction
	}

	var deleted []ir.ElementID
	for _, id := range ids {
		e, ok := d.elements[id]
		if !ok || e.Undeletable {
			continue
		}
		deleted = append(deleted, d.deleteTree(e)...)
	}
	return deleted, nil
}

// deleteTree removes e and its dependents, recording undo steps.
func (d *Document) deleteTree(e *Element) []ir.ElementID {
	var out []ir.ElementID
	for _, dep := range d.Elements() {
		if dep.ID == e.ID {
			continue
		}
		hosted := dep.HostID == e.ID
		tagged := dep.Tag != nil && (dep.Tag.RoomID == e.ID || dep.Tag.ViewID == e.ID)
		if hosted || tagged {
			out = append(out, d.deleteTree(dep)...)
		}
	}

	snapshot := e.clone()
	id := e.ID
	// record cannot fail here; Delete checked the open transaction.
	_ = d.record(func() { d.elements[id] = snapshot })
	delete(d.elements, id)
	return append(out, id)
}

// Move translates an element by v (internal units). Hosted dependents move
// with their host.
func (d *Document) Move(id ir.ElementID, v ir.XYZ) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Pinned {
		return ErrPinned
	}
	return d.transform(e, func(p ir.XYZ) ir.XYZ { return p.Add(v) })
}

// Rotate turns an element about axis by angle radians.
func (d *Document) Rotate(id ir.ElementID, axis ir.Line, angle float64) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Pinned {
		return ErrPinned
	}
	dir := axis.P1.Sub(axis.P0)
	if dir.IsZero() {
		return errors.New("rotation axis has zero length")
	}
	return d.transform(e, func(p ir.XYZ) ir.XYZ {
		return rotateAbout(p, axis.P0, dir, angle)
	})
}

// Mirror reflects an element in place across the plane through origin
// with the given normal.
func (d *Document) Mirror(id ir.ElementID, origin, normal ir.XYZ) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Pinned {
		return ErrPinned
	}
	if normal.IsZero() {
		return errors.New("mirror plane normal has zero length")
	}
	n := normalize(normal)
	if err := d.transform(e, func(p ir.XYZ) ir.XYZ {
		dist := p.Sub(origin).Dot(n)
		return p.Sub(n.Scale(2 * dist))
	}); err != nil {
		return err
	}
	prev := e.Mirrored
	if err := d.record(func() { e.Mirrored = prev }); err != nil {
		return err
	}
	e.Mirrored = !prev
	return nil
}

// FlipHand flips a family instance left/right.
func (d *Document) FlipHand(id ir.ElementID) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if !e.CanFlipHand {
		return errors.New("instance cannot be flipped by hand")
	}
	prev := e.HandFlipped
	if err := d.record(func() { e.HandFlipped = prev }); err != nil {
		return err
	}
	e.HandFlipped = !prev
	return nil
}

// FlipFacing flips a family instance front/back.
func (d *Document) FlipFacing(id ir.ElementID) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if !e.CanFlipFacing {
		return errors.New("instance cannot be flipped by facing")
	}
	prev := e.FacingFlipped
	if err := d.record(func() { e.FacingFlipped = prev }); err != nil {
		return err
	}
	e.FacingFlipped = !prev
	return nil
}

// transform applies f to the location and bounds of e and of every
// element hosted by e.
func (d *Document) transform(e *Element, f func(ir.XYZ) ir.XYZ) error {
	targets := []*Element{e}
	for _, dep := range d.Elements() {
		if dep.HostID == e.ID {
			targets = append(targets, dep)
		}
	}

	for _, t := range targets {
		prevLoc := t.Location
		var prevBounds *ir.Box
		if t.Bounds != nil {
			b := *t.Bounds
			prevBounds = &b
		}
		if err := d.record(func() {
			t.Location = prevLoc
			t.Bounds = prevBounds
		}); err != nil {
			return err
		}

		t.Location = f(t.Location)
		if t.Bounds != nil {
			nb := transformBox(*t.Bounds, f)
			t.Bounds = &nb
		}
	}
	return nil
}

// transformBox maps the eight corners of b through f and returns their
// axis-aligned bounds.
func transformBox(b ir.Box, f func(ir.XYZ) ir.XYZ) ir.Box {
	var out ir.Box
	first := true
	for _, x := range []float64{b.Min.X, b.Max.X} {
		for _, y := range []float64{b.Min.Y, b.Max.Y} {
			for _, z := range []float64{b.Min.Z, b.Max.Z} {
				p := f(ir.XYZ{X: x, Y: y, Z: z})
				if first {
					out = ir.Box{Min: p, Max: p}
					first = false
					continue
				}
				out = out.Union(ir.Box{Min: p, Max: p})
			}
		}
	}
	return out
}

func normalize(v ir.XYZ) ir.XYZ {
	l := math.Sqrt(v.Dot(v))
	return v.Scale(1 / l)
}

// rotateAbout rotates p by angle around the line through origin with
// direction dir (Rodrigues' formula).
func rotateAbout(p, origin, dir ir.XYZ, angle float64) ir.XYZ {
	k := normalize(dir)
	v := p.Sub(origin)
	cos, sin := math.Cos(angle), math.Sin(angle)
	cross := ir.XYZ{
		X: k.Y*v.Z - k.Z*v.Y,
		Y: k.Z*v.X - k.X*v.Z,
		Z: k.X*v.Y - k.Y*v.X,
	}
	r := v.Scale(cos).Add(cross.Scale(sin)).Add(k.Scale(k.Dot(v) * (1 - cos)))
	return origin.Add(r)
}

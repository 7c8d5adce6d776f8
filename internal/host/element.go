package host

import (
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// ElementKind is the host's coarse element classification.
type ElementKind string

const (
	KindInstance ElementKind = "instance" // family instance (doors, furniture, ...)
	KindWall     ElementKind = "wall"
	KindFloor    ElementKind = "floor"
	KindType     ElementKind = "type" // type-level element, never placed in a view
	KindLevel    ElementKind = "level"
	KindRoom     ElementKind = "room"
	KindRoomTag  ElementKind = "room_tag"
	KindView     ElementKind = "view"
)

// IsTypeLevel reports whether elements of this kind are types rather than
// placed instances.
func (k ElementKind) IsTypeLevel() bool {
	return k == KindType
}

// StorageType is how a parameter stores its value.
type StorageType string

const (
	StorageString    StorageType = "string"
	StorageDouble    StorageType = "double"
	StorageInteger   StorageType = "integer"
	StorageElementID StorageType = "element_id"
)

// Parameter is a named, typed value on an element. Double values are held
// in internal units according to Measure.
type Parameter struct {
	Name     string
	Builtin  string
	Storage  StorageType
	Measure  units.Measure
	ReadOnly bool
	Value    any // string | float64 | int64 | ir.ElementID
}

// Element is a node of the host document. Kind-specific data lives in the
// optional Level, Room, Tag and View fields.
type Element struct {
	ID       ir.ElementID
	Kind     ElementKind
	Name     string
	Category string
	Location ir.XYZ  // internal units
	Bounds   *ir.Box // nil when the element has no extractable geometry
	HostID   ir.ElementID
	LevelID  ir.ElementID
	Pinned   bool

	CanFlipHand   bool
	CanFlipFacing bool
	HandFlipped   bool
	FacingFlipped bool
	Mirrored      bool

	// Undeletable elements survive Delete (the host reports zero deleted).
	Undeletable bool
	// Unhideable elements make view hide calls fail as a whole.
	Unhideable bool

	Params []*Parameter

	Level *LevelData
	Room  *RoomData
	Tag   *TagData
	View  *ViewData
}

// LevelData holds level-specific state.
type LevelData struct {
	Elevation     float64 // internal units
	BuildingStory bool
}

// RoomData holds room-specific state.
type RoomData struct {
	Number       string
	Area         float64 // square feet, 0 when unplaced
	Perimeter    float64 // internal units
	UpperLimitID ir.ElementID
	LimitOffset  float64
	BaseOffset   float64
	Department   string
	Comments     string
}

// Placed reports whether the room encloses a region.
func (r *RoomData) Placed() bool {
	return r != nil && r.Area > 0
}

// TagData holds room tag state.
type TagData struct {
	RoomID    ir.ElementID
	ViewID    ir.ElementID
	TypeID    ir.ElementID
	HasLeader bool
}

// LookupParameter finds a parameter by builtin name first, then by display
// name. Returns nil if neither matches.
func (e *Element) LookupParameter(name string) *Parameter {
	for _, p := range e.Params {
		if p.Builtin != "" && p.Builtin == name {
			return p
		}
	}
	for _, p := range e.Params {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// clone returns a deep copy used to restore deleted elements on rollback.
func (e *Element) clone() *Element {
	c := *e
	if e.Bounds != nil {
		b := *e.Bounds
		c.Bounds = &b
	}
	c.Params = make([]*Parameter, len(e.Params))
	for i, p := range e.Params {
		cp := *p
		c.Params[i] = &cp
	}
	if e.Level != nil {
		l := *e.Level
		c.Level = &l
	}
	if e.Room != nil {
		r := *e.Room
		c.Room = &r
	}
	if e.Tag != nil {
		t := *e.Tag
		c.Tag = &t
	}
	if e.View != nil {
		c.View = e.View.clone()
	}
	return &c
}

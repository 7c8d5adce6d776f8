package host

import (
	"errors"
	"fmt"
	"maps"

	"github.com/roach88/bimbridge/internal/ir"
)

// ViewType classifies views.
type ViewType string

const (
	ViewFloorPlan   ViewType = "FloorPlan"
	ViewCeilingPlan ViewType = "CeilingPlan"
	ViewThreeD      ViewType = "ThreeD"
	ViewSection     ViewType = "Section"
)

// TempMode is the per-view temporary hide/isolate state.
type TempMode string

const (
	TempModeNormal      TempMode = "normal"
	TempModeHideIsolate TempMode = "temporary_hide_isolate"
)

// Override is a per-element graphic override in one view.
type Override struct {
	Color        *[3]uint8 `json:"color,omitempty"`
	Transparency int       `json:"transparency,omitempty"`
}

// ViewData holds the visibility state of a view.
type ViewData struct {
	Type     ViewType
	Template bool
	Locked   bool

	Hidden     map[ir.ElementID]bool // persistent
	TempHidden map[ir.ElementID]bool
	Isolated   map[ir.ElementID]bool // when non-empty, only these are shown
	Mode       TempMode

	Overrides  map[ir.ElementID]Override
	SectionBox *ir.Box
}

// NewViewData returns an empty view state in Normal mode.
func NewViewData(t ViewType) *ViewData {
	return &ViewData{
		Type:       t,
		Hidden:     make(map[ir.ElementID]bool),
		TempHidden: make(map[ir.ElementID]bool),
		Isolated:   make(map[ir.ElementID]bool),
		Mode:       TempModeNormal,
		Overrides:  make(map[ir.ElementID]Override),
	}
}

func (v *ViewData) clone() *ViewData {
	c := *v
	c.Hidden = maps.Clone(v.Hidden)
	c.TempHidden = maps.Clone(v.TempHidden)
	c.Isolated = maps.Clone(v.Isolated)
	c.Overrides = maps.Clone(v.Overrides)
	if v.SectionBox != nil {
		b := *v.SectionBox
		c.SectionBox = &b
	}
	return &c
}

// Visible reports whether id is currently drawn in the view.
func (v *ViewData) Visible(id ir.ElementID) bool {
	if v.Hidden[id] || v.TempHidden[id] {
		return false
	}
	if len(v.Isolated) > 0 && !v.Isolated[id] {
		return false
	}
	return true
}

// ErrNotAView is returned when a view operation targets a non-view element.
var ErrNotAView = errors.New("element is not a view")

// view resolves a view element.
func (d *Document) view(id ir.ElementID) (*ViewData, error) {
	e, ok := d.elements[id]
	if !ok {
		return nil, fmt.Errorf("view %d: %w", id, ErrElementNotFound)
	}
	if e.View == nil {
		return nil, fmt.Errorf("view %d: %w", id, ErrNotAView)
	}
	return e.View, nil
}

// snapshotView records the view's full state for rollback.
func (d *Document) snapshotView(id ir.ElementID, v *ViewData) error {
	prev := v.clone()
	return d.record(func() {
		if e, ok := d.elements[id]; ok {
			e.View = prev
		}
	})
}

// checkHideable fails the whole call if any element cannot be hidden,
// mirroring hosts that validate the full set before applying it.
func (d *Document) checkHideable(ids []ir.ElementID) error {
	for _, id := range ids {
		e, ok := d.elements[id]
		if !ok {
			return fmt.Errorf("element %d: %w", id, ErrElementNotFound)
		}
		if e.Unhideable || e.Kind == KindView {
			return fmt.Errorf("element %d cannot be hidden in this view", id)
		}
	}
	return nil
}

// HideElements hides ids persistently in the view.
func (d *Document) HideElements(viewID ir.ElementID, ids []ir.ElementID) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if err := d.checkHideable(ids); err != nil {
		return err
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	for _, id := range ids {
		v.Hidden[id] = true
	}
	return nil
}

// UnhideElements reverses HideElements. It does not touch temporary state.
func (d *Document) UnhideElements(viewID ir.ElementID, ids []ir.ElementID) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	for _, id := range ids {
		delete(v.Hidden, id)
	}
	return nil
}

// HideTemporary hides ids until the temporary mode is reset.
func (d *Document) HideTemporary(viewID ir.ElementID, ids []ir.ElementID) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if err := d.checkHideable(ids); err != nil {
		return err
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	for _, id := range ids {
		v.TempHidden[id] = true
	}
	v.Mode = TempModeHideIsolate
	return nil
}

// IsolateTemporary shows only ids until the temporary mode is reset.
// Isolating again replaces the isolated set.
func (d *Document) IsolateTemporary(viewID ir.ElementID, ids []ir.ElementID) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	v.Isolated = make(map[ir.ElementID]bool, len(ids))
	for _, id := range ids {
		v.Isolated[id] = true
	}
	v.Mode = TempModeHideIsolate
	return nil
}

// DisableTemporaryMode returns the view to Normal and clears temporary
// hide and isolate sets. It is a no-op on a view already in Normal mode.
func (d *Document) DisableTemporaryMode(viewID ir.ElementID) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	clear(v.TempHidden)
	clear(v.Isolated)
	v.Mode = TempModeNormal
	return nil
}

// SetOverride replaces the graphic override of id in the view.
func (d *Document) SetOverride(viewID, id ir.ElementID, ov Override) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if _, ok := d.elements[id]; !ok {
		return fmt.Errorf("element %d: %w", id, ErrElementNotFound)
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	v.Overrides[id] = ov
	return nil
}

// SetSectionBox enables the 3D section box of a view.
func (d *Document) SetSectionBox(viewID ir.ElementID, box ir.Box) error {
	v, err := d.view(viewID)
	if err != nil {
		return err
	}
	if v.Type != ViewThreeD {
		return fmt.Errorf("view %d is not a 3D view", viewID)
	}
	if err := d.snapshotView(viewID, v); err != nil {
		return err
	}
	v.SectionBox = &box
	return nil
}

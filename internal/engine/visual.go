package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// visualHandler implements Select, SelectionBox, Highlight, SetColor and
// SetTransparency.
type visualHandler struct{}

func (visualHandler) Family() ir.Family { return ir.FamilyVisual }

func (visualHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerBatch, Warnings: Strict}
}

func (visualHandler) Validate(req *ir.Request) error {
	return requireTargets(req)
}

// sectionBoxOffset pads the section box around the selection, in feet.
const sectionBoxOffset = 1.0

// preferred3DViews are tried by name before any other eligible 3D view.
var preferred3DViews = []string{"{3D}", "Default 3D"}

var errNo3DView = errors.New("no eligible 3D view")

func (h visualHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	p := req.Payload.(*ir.VisualPayload)
	if ec.View == nil && req.Kind != ir.ActionSelect {
		return errNoActiveView
	}

	eligible := eligibleForView(ec, req, agg, "type elements cannot receive view overrides")
	if len(eligible) == 0 {
		return nil
	}

	var apply func() error
	switch req.Kind {
	case ir.ActionSelect:
		apply = func() error {
			ec.Doc.SetSelection(eligible)
			return nil
		}

	case ir.ActionSelectionBox:
		view, switched, err := ensure3DView(ec)
		if err != nil {
			return err
		}
		agg.SetDetail("viewSwitched", switched)
		agg.SetDetail("targetViewName", view.Name)
		box := unionBounds(ec.Doc, eligible).Grow(sectionBoxOffset)
		apply = func() error { return ec.Doc.SetSectionBox(view.ID, box) }

	case ir.ActionHighlight:
		red := units.DefaultColor
		apply = func() error {
			return overrideEach(ec, eligible, func(ov *host.Override) { ov.Color = &red })
		}

	case ir.ActionSetColor:
		color := units.ClampColor(p.Color)
		agg.SetDetail("color", []int{int(color[0]), int(color[1]), int(color[2])})
		apply = func() error {
			return overrideEach(ec, eligible, func(ov *host.Override) { ov.Color = &color })
		}

	case ir.ActionSetTransparency:
		t := units.ClampTransparency(p.Transparency)
		agg.SetDetail("transparency", t)
		apply = func() error {
			return overrideEach(ec, eligible, func(ov *host.Override) { ov.Transparency = t })
		}

	default:
		return fmt.Errorf("unhandled visual action %s", req.Kind)
	}

	ws, err := ec.Transact(string(req.Kind), h.Policy(req.Kind), apply)
	if err != nil {
		return err
	}
	for _, id := range eligible {
		agg.Succeed(id)
	}
	setWarnings(agg, ws)
	return nil
}

// overrideEach merges an override change into the current override of
// every id in the active view.
func overrideEach(ec *ExecContext, ids []ir.ElementID, change func(*host.Override)) error {
	viewID := ec.View.ID
	for _, id := range ids {
		ov := ec.View.View.Overrides[id]
		change(&ov)
		if err := ec.Doc.SetOverride(viewID, id, ov); err != nil {
			return err
		}
	}
	return nil
}

// ensure3DView returns the active view if it is 3D, otherwise switches to
// a non-template, unlocked 3D view, preferring the default names.
func ensure3DView(ec *ExecContext) (*host.Element, bool, error) {
	if ec.View != nil && ec.View.View.Type == host.ViewThreeD {
		return ec.View, false, nil
	}

	var candidates []*host.Element
	for _, v := range ec.Doc.Views(host.ViewThreeD) {
		if !v.View.Template && !v.View.Locked {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return nil, false, errNo3DView
	}

	target := candidates[0]
pick:
	for _, name := range preferred3DViews {
		for _, v := range candidates {
			if v.Name == name {
				target = v
				break pick
			}
		}
	}

	if err := ec.Doc.SetActiveView(target.ID); err != nil {
		return nil, false, err
	}
	ec.Logger.Info("switched active view for section box", "view", target.Name)
	ec.View = target
	return target, true, nil
}

// unionBounds returns the union of the bounds of ids. Every id must have
// bounds.
func unionBounds(doc *host.Document, ids []ir.ElementID) ir.Box {
	var box ir.Box
	for i, id := range ids {
		e, _ := doc.Element(id)
		if i == 0 {
			box = *e.Bounds
			continue
		}
		box = box.Union(*e.Bounds)
	}
	return box
}

package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
)

// visibilityHandler implements Hide, TempHide, Isolate, Unhide and
// ResetIsolate on the active view.
type visibilityHandler struct{}

func (visibilityHandler) Family() ir.Family { return ir.FamilyVisibility }

func (visibilityHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerBatch, Warnings: Strict}
}

func (visibilityHandler) Validate(req *ir.Request) error {
	if req.Kind.TargetsIgnored() {
		return nil
	}
	return requireTargets(req)
}

var errNoActiveView = errors.New("no active view")

func (h visibilityHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	if ec.View == nil {
		return errNoActiveView
	}
	viewID := ec.View.ID
	agg.SetDetail("viewName", ec.View.Name)
	name := fmt.Sprintf("%s in %s", req.Kind, ec.View.Name)

	if req.Kind == ir.ActionResetIsolate {
		ws, err := ec.Transact(name, h.Policy(req.Kind), func() error {
			return ec.Doc.DisableTemporaryMode(viewID)
		})
		if err != nil {
			return err
		}
		agg.SetDetail("globalAction", true)
		agg.SetDetail("ignoredTargets", len(req.TargetIDs))
		setWarnings(agg, ws)
		return nil
	}

	eligible := eligibleForView(ec, req, agg, "type elements cannot be shown or hidden")
	if len(eligible) == 0 {
		return nil
	}

	ws, err := ec.Transact(name, h.Policy(req.Kind), func() error {
		switch req.Kind {
		case ir.ActionHide:
			return ec.Doc.HideElements(viewID, eligible)
		case ir.ActionUnhide:
			return ec.Doc.UnhideElements(viewID, eligible)
		case ir.ActionTempHide:
			return ec.Doc.HideTemporary(viewID, eligible)
		case ir.ActionIsolate:
			return ec.Doc.IsolateTemporary(viewID, eligible)
		}
		return fmt.Errorf("unhandled visibility action %s", req.Kind)
	})
	if err != nil {
		return err
	}
	for _, id := range eligible {
		agg.Succeed(id)
	}
	setWarnings(agg, ws)
	return nil
}

// eligibleForView resolves targets for a view operation. Type-level
// elements fail with typeReason; Isolate and SelectionBox also need bounds.
// The result is deduplicated and keeps target order.
func eligibleForView(ec *ExecContext, req *ir.Request, agg *Aggregator, typeReason string) []ir.ElementID {
	needBounds := req.Kind == ir.ActionIsolate || req.Kind == ir.ActionSelectionBox
	seen := make(map[ir.ElementID]bool)
	var out []ir.ElementID
	resolveEach(ec, req.TargetIDs, agg, func(e *host.Element) {
		switch {
		case e.Kind.IsTypeLevel():
			agg.FailErr(e.ID, NewUnsupportedError(e.ID, "%s", typeReason))
		case needBounds && e.Bounds == nil:
			agg.FailErr(e.ID, NewUnsupportedError(e.ID, "element has no extractable bounds"))
		case !seen[e.ID]:
			seen[e.ID] = true
			out = append(out, e.ID)
		}
	})
	return out
}

package engine

import (
	"errors"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// transformHandler implements Rotate, Mirror, Flip and Move.
type transformHandler struct{}

func (transformHandler) Family() ir.Family { return ir.FamilyTransform }

func (transformHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerBatch, Warnings: Strict}
}

func (transformHandler) Validate(req *ir.Request) error {
	if err := requireTargets(req); err != nil {
		return err
	}
	p := req.Payload.(*ir.TransformPayload)
	switch req.Kind {
	case ir.ActionRotate:
		if p.RotationAngle == nil {
			return NewValidationError("rotationAngle is required for Rotate")
		}
		if p.RotationAxis != nil && p.RotationAxis.P0 == p.RotationAxis.P1 {
			return NewValidationError("rotationAxis must have two distinct points")
		}
	case ir.ActionMirror:
		if p.MirrorPlane != nil && p.MirrorPlane.Normal.IsZero() {
			return NewValidationError("mirrorPlane.normal must be non-zero")
		}
	case ir.ActionFlip:
		if p.FlipDirection == "" {
			return NewValidationError("flipDirection is required for Flip")
		}
	case ir.ActionMove:
		if p.MoveVector == nil {
			return NewValidationError("moveVector is required for Move")
		}
	}
	return nil
}

var errNoReference = errors.New("no target element could be resolved")

func (h transformHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	p := req.Payload.(*ir.TransformPayload)

	var op func(e *host.Element) error
	switch req.Kind {
	case ir.ActionRotate:
		axis, err := rotationAxis(ec.Doc, req.TargetIDs, p.RotationAxis)
		if err != nil {
			return err
		}
		angle := units.DegreesToRadians(*p.RotationAngle)
		op = func(e *host.Element) error { return ec.Doc.Rotate(e.ID, axis, angle) }
		agg.SetDetail("rotateAngle", *p.RotationAngle)
		agg.SetDetail("rotateAxis", ir.Line{P0: units.PointToMM(axis.P0), P1: units.PointToMM(axis.P1)})

	case ir.ActionMirror:
		origin, normal, err := mirrorPlane(ec.Doc, req.TargetIDs, p.MirrorPlane)
		if err != nil {
			return err
		}
		op = func(e *host.Element) error { return ec.Doc.Mirror(e.ID, origin, normal) }
		mm := units.PointToMM(origin)
		agg.SetDetail("mirrorPlane", ir.Plane{Origin: &mm, Normal: &normal})

	case ir.ActionFlip:
		dir := p.FlipDirection
		op = func(e *host.Element) error { return flip(ec.Doc, e, dir) }
		agg.SetDetail("flipDirection", dir)

	case ir.ActionMove:
		v := units.PointToInternal(*p.MoveVector)
		op = func(e *host.Element) error {
			if err := checkMovable(e); err != nil {
				return err
			}
			return ec.Doc.Move(e.ID, v)
		}
		agg.SetDetail("moveStrategy", "directTransform")
	}

	ws, err := ec.Transact(string(req.Kind)+" elements", h.Policy(req.Kind), func() error {
		resolveEach(ec, req.TargetIDs, agg, func(e *host.Element) {
			if err := op(e); err != nil {
				var oe *OperationError
				if !errors.As(err, &oe) {
					err = NewHostMutationError(e.ID, err)
				}
				agg.FailErr(e.ID, err)
				return
			}
			agg.Succeed(e.ID)
		})
		return nil
	})
	if err != nil {
		return err
	}
	setWarnings(agg, ws)
	return nil
}

// firstLocation returns the location of the first resolvable target.
func firstLocation(doc *host.Document, ids []ir.ElementID) (ir.XYZ, bool) {
	for _, id := range ids {
		if e, ok := doc.Element(id); ok {
			return e.Location, true
		}
	}
	return ir.XYZ{}, false
}

// rotationAxis converts the requested axis to internal units, or derives
// the vertical line through the first resolvable element.
func rotationAxis(doc *host.Document, ids []ir.ElementID, axis *ir.Line) (ir.Line, error) {
	if axis != nil {
		return ir.Line{P0: units.PointToInternal(axis.P0), P1: units.PointToInternal(axis.P1)}, nil
	}
	loc, ok := firstLocation(doc, ids)
	if !ok {
		return ir.Line{}, errNoReference
	}
	return ir.Line{P0: loc, P1: loc.Add(ir.XYZ{Z: 1})}, nil
}

// mirrorPlane converts the requested plane, or derives the YZ plane
// through the first resolvable element. A plane without an origin takes
// the element's location.
func mirrorPlane(doc *host.Document, ids []ir.ElementID, plane *ir.Plane) (origin, normal ir.XYZ, err error) {
	normal = ir.XYZ{X: 1}
	if plane != nil {
		normal = *plane.Normal
		if plane.Origin != nil {
			return units.PointToInternal(*plane.Origin), normal, nil
		}
	}
	loc, ok := firstLocation(doc, ids)
	if !ok {
		return ir.XYZ{}, ir.XYZ{}, errNoReference
	}
	return loc, normal, nil
}

func flip(doc *host.Document, e *host.Element, dir string) error {
	if e.Kind != host.KindInstance {
		return NewUnsupportedError(e.ID, "only family instances support flip")
	}
	switch dir {
	case "Hand":
		if !e.CanFlipHand {
			return NewUnsupportedError(e.ID, "does not support %s flip", strings.ToLower(dir))
		}
		return doc.FlipHand(e.ID)
	default:
		if !e.CanFlipFacing {
			return NewUnsupportedError(e.ID, "does not support %s flip", strings.ToLower(dir))
		}
		return doc.FlipFacing(e.ID)
	}
}

// checkMovable allows unhosted instances, walls and floors.
func checkMovable(e *host.Element) error {
	switch e.Kind {
	case host.KindInstance:
		if e.HostID != 0 {
			return NewUnsupportedError(e.ID, "element is hosted by another element and cannot be moved independently")
		}
		return nil
	case host.KindWall, host.KindFloor:
		return nil
	default:
		return NewUnsupportedError(e.ID, "element type does not support move")
	}
}

package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// modifyHandler implements SetParameter and Delete.
type modifyHandler struct{}

func (modifyHandler) Family() ir.Family { return ir.FamilyModify }

func (modifyHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerBatch, Warnings: Strict}
}

func (modifyHandler) Validate(req *ir.Request) error {
	if err := requireTargets(req); err != nil {
		return err
	}
	p := req.Payload.(*ir.ModifyPayload)
	if req.Kind == ir.ActionSetParameter {
		if strings.TrimSpace(p.ParameterName) == "" {
			return NewValidationError("parameterName is required for SetParameter")
		}
		if p.ParameterValue == nil {
			return NewValidationError("parameterValue is required for SetParameter")
		}
	}
	return nil
}

func (h modifyHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	p := req.Payload.(*ir.ModifyPayload)

	var deleted int
	ws, err := ec.Transact(string(req.Kind)+" elements", h.Policy(req.Kind), func() error {
		resolveEach(ec, req.TargetIDs, agg, func(e *host.Element) {
			switch req.Kind {
			case ir.ActionSetParameter:
				if err := setParameter(ec.Doc, e, p.ParameterName, p.ParameterValue); err != nil {
					agg.FailErr(e.ID, err)
					return
				}
			case ir.ActionDelete:
				ids, err := ec.Doc.Delete(e.ID)
				if err != nil {
					agg.FailErr(e.ID, NewHostMutationError(e.ID, err))
					return
				}
				if len(ids) == 0 {
					agg.FailErr(e.ID, NewUnsupportedError(e.ID, "element could not be deleted"))
					return
				}
				deleted += len(ids)
			}
			agg.Succeed(e.ID)
		})
		return nil
	})
	if err != nil {
		return err
	}

	if req.Kind == ir.ActionSetParameter {
		agg.SetDetail("parameterName", p.ParameterName)
	} else {
		agg.SetDetail("deletedCount", deleted)
	}
	setWarnings(agg, ws)
	return nil
}

// setParameter resolves a parameter by builtin name, then display name,
// converts value by storage kind and writes it.
func setParameter(doc *host.Document, e *host.Element, name string, value any) error {
	param := e.LookupParameter(name)
	if param == nil {
		return NewUnsupportedError(e.ID, "parameter not found")
	}
	if param.ReadOnly {
		return NewUnsupportedError(e.ID, "parameter is read-only")
	}
	v, err := convertValue(param, value)
	if err != nil {
		return NewUnsupportedError(e.ID, "%s", err.Error())
	}
	if err := doc.SetParameterValue(e.ID, param, v); err != nil {
		return NewHostMutationError(e.ID, err)
	}
	return nil
}

// convertValue turns a wire value into the parameter's storage type.
// Doubles are converted from display units (mm, degrees) to internal units.
func convertValue(p *host.Parameter, value any) (any, error) {
	switch p.Storage {
	case host.StorageString:
		return units.ToString(value), nil
	case host.StorageDouble:
		f, err := units.ToFloat(value)
		if err != nil {
			return nil, err
		}
		return units.ToInternal(f, p.Measure), nil
	case host.StorageInteger:
		return units.ToInt(value)
	case host.StorageElementID:
		return units.ToElementID(value)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", p.Storage)
	}
}

package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ident"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// levelHandler implements CreateLevel. Every item runs in its own
// transaction.
type levelHandler struct{}

func (levelHandler) Family() ir.Family { return ir.FamilyCreation }

func (levelHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerItem, Warnings: Suppress}
}

// Validate has nothing to add to the payload's struct tags.
func (levelHandler) Validate(*ir.Request) error { return nil }

// levelExistsError carries the id of the level whose name collided.
type levelExistsError struct {
	name string
	id   ir.ElementID
}

func (e *levelExistsError) Error() string {
	return fmt.Sprintf("level '%s' already exists", e.name)
}

func (h levelHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	specs := req.Payload.(*ir.LevelsPayload).Levels

	existing := make(map[string]ir.ElementID)
	var names []string
	for _, l := range ec.Doc.ElementsOfKind(host.KindLevel) {
		names = append(names, l.Name)
		existing[l.Name] = l.ID
	}
	ledger := ident.NewLedger(names)

	results := make([]ir.LevelResult, 0, len(specs))
	var warnings []string
	for i, spec := range specs {
		item := i + 1
		name := strings.TrimSpace(spec.Name)

		var (
			lvl    *host.Element
			result ir.LevelResult
			notes  []string
		)
		ws, err := ec.Transact(fmt.Sprintf("Create level %d", item), h.Policy(req.Kind), func() error {
			if name != "" {
				if stored, taken := ledger.Lookup(name); taken {
					return &levelExistsError{name: name, id: existing[stored]}
				}
			}

			var err error
			lvl, err = ec.Doc.CreateLevel(units.MMToInternal(*spec.Elevation))
			if err != nil {
				return err
			}
			if name != "" {
				if err := ec.Doc.SetLevelName(lvl.ID, name); err != nil {
					return err
				}
			}
			if spec.IsBuildingStory != nil {
				if err := ec.Doc.SetBuildingStory(lvl.ID, *spec.IsBuildingStory); err != nil {
					return err
				}
			}

			result = ir.LevelResult{
				ID:        lvl.ID,
				Name:      lvl.Name,
				Elevation: units.Round(units.InternalToMM(lvl.Level.Elevation), 3),
			}
			if spec.CreateFloorPlan {
				v, note, err := createPlan(ec.Doc, host.ViewFloorPlan, lvl)
				if err != nil {
					return err
				}
				if v != nil {
					result.FloorPlanViewName = v.Name
				}
				notes = append(notes, note...)
			}
			if spec.CreateCeilingPlan {
				v, note, err := createPlan(ec.Doc, host.ViewCeilingPlan, lvl)
				if err != nil {
					return err
				}
				if v != nil {
					result.CeilingPlanViewName = v.Name
				}
				notes = append(notes, note...)
			}
			return nil
		})
		if err != nil {
			var exists *levelExistsError
			if errors.As(err, &exists) {
				agg.FailItem(item, exists.id, exists.Error())
			} else {
				agg.FailItem(item, 0, reason(err))
			}
			continue
		}

		ledger.Add(lvl.Name)
		existing[lvl.Name] = lvl.ID
		agg.Succeed(lvl.ID)
		results = append(results, result)
		warnings = append(warnings, notes...)
		warnings = append(warnings, warningMessages(ws)...)
	}

	agg.SetDetail("levels", results)
	if len(warnings) > 0 {
		agg.SetDetail("warnings", warnings)
	}
	return nil
}

// createPlan creates a plan view for lvl. A document without the view
// family yields a note instead of an error.
func createPlan(doc *host.Document, t host.ViewType, lvl *host.Element) (*host.Element, []string, error) {
	v, err := doc.CreateView(t, lvl.ID)
	if errors.Is(err, host.ErrNoViewFamily) {
		return nil, []string{fmt.Sprintf("no %s view family available; level '%s' has no %s view", t, lvl.Name, t)}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return v, nil, nil
}

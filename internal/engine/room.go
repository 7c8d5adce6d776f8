package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ident"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// roomHandler implements CreateRoom. Every item runs in its own
// transaction; numbers come from one ledger shared by the batch.
type roomHandler struct {
	token ident.TokenSource
}

func (roomHandler) Family() ir.Family { return ir.FamilyCreation }

func (roomHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerItem, Warnings: Suppress}
}

// Validate has nothing to add to the payload's struct tags.
func (roomHandler) Validate(*ir.Request) error { return nil }

var errNoLevels = errors.New("document has no levels")

func (h roomHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	specs := req.Payload.(*ir.RoomsPayload).Rooms

	levels := ec.Doc.Levels()
	if len(levels) == 0 {
		return errNoLevels
	}

	var numbers []string
	for _, r := range ec.Doc.ElementsOfKind(host.KindRoom) {
		numbers = append(numbers, r.Room.Number)
	}
	var opts []ident.Option
	if h.token != nil {
		opts = append(opts, ident.WithTokenSource(h.token))
	}
	ledger := ident.NewLedger(numbers, opts...)

	results := make([]ir.RoomResult, 0, len(specs))
	var warnings []string
	exhausted := false
	for i, spec := range specs {
		item := i + 1

		level, err := roomLevel(ec.Doc, levels, spec)
		if err != nil {
			agg.FailItem(item, spec.LevelID, err.Error())
			continue
		}

		requested := strings.TrimSpace(spec.Number)
		number, strategy, added := allocateNumber(ledger, requested)
		if strategy == ident.StrategyRandom {
			exhausted = true
			ec.Logger.Warn("room number uniqueness exhausted", "requested", requested, "assigned", number)
		}

		var room *host.Element
		ws, err := ec.Transact(fmt.Sprintf("Create room %d", item), h.Policy(req.Kind), func() error {
			var err error
			room, err = ec.Doc.NewRoom(level.ID, units.MMToInternal(*spec.X), units.MMToInternal(*spec.Y))
			if err != nil {
				return err
			}
			return ec.Doc.UpdateRoom(room.ID, roomUpdate(spec, number))
		})
		if err != nil {
			if added {
				ledger.Release(number)
			}
			agg.FailItem(item, 0, reason(err))
			continue
		}

		agg.Succeed(room.ID)
		results = append(results, ir.RoomResult{
			ID:              room.ID,
			Name:            room.Name,
			Number:          room.Room.Number,
			RequestedNumber: requested,
			NumberStrategy:  string(strategy),
			LevelName:       level.Name,
			Area:            units.Round(units.AreaToSquareMeters(room.Room.Area), 3),
			Perimeter:       units.Round(units.InternalToMM(room.Room.Perimeter), 1),
		})
		warnings = append(warnings, warningMessages(ws)...)
	}

	agg.SetDetail("rooms", results)
	if exhausted {
		agg.SetDetail("numberStrategy", string(ErrCodeUniquenessExhausted))
	}
	if len(warnings) > 0 {
		agg.SetDetail("warnings", warnings)
	}
	return nil
}

// allocateNumber picks a room number and records it in the ledger. added is
// false when the number was already held, so a rollback must not free it.
func allocateNumber(ledger *ident.Ledger, requested string) (number string, strategy ident.Strategy, added bool) {
	before := ledger.Len()
	if requested == "" {
		number, strategy = ledger.NextAvailable(), ident.StrategyNext
	} else {
		number, strategy = ledger.Assign(requested)
	}
	return number, strategy, ledger.Len() > before
}

// roomLevel resolves the level for a room: the explicit id, then the level
// nearest to z, then the lowest level.
func roomLevel(doc *host.Document, levels []*host.Element, spec ir.RoomSpec) (*host.Element, error) {
	if spec.LevelID != 0 {
		e, ok := doc.Element(spec.LevelID)
		if !ok || e.Level == nil {
			return nil, fmt.Errorf("level %d not found", spec.LevelID)
		}
		return e, nil
	}
	if spec.Z != nil {
		z := units.MMToInternal(*spec.Z)
		best := levels[0]
		for _, l := range levels[1:] {
			if math.Abs(l.Level.Elevation-z) < math.Abs(best.Level.Elevation-z) {
				best = l
			}
		}
		return best, nil
	}
	return levels[0], nil
}

func roomUpdate(spec ir.RoomSpec, number string) host.RoomUpdate {
	u := host.RoomUpdate{Number: &number}
	if name := strings.TrimSpace(spec.Name); name != "" {
		u.Name = &name
	}
	if spec.UpperLimitID != 0 {
		id := spec.UpperLimitID
		u.UpperLimitID = &id
	}
	if spec.LimitOffset != nil {
		v := units.MMToInternal(*spec.LimitOffset)
		u.LimitOffset = &v
	}
	if spec.BaseOffset != nil {
		v := units.MMToInternal(*spec.BaseOffset)
		u.BaseOffset = &v
	}
	if spec.Department != "" {
		d := spec.Department
		u.Department = &d
	}
	if spec.Comments != "" {
		c := spec.Comments
		u.Comments = &c
	}
	return u
}

package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
)

// tagRoomsHandler implements TagRooms: one batch transaction that places a
// room tag on every target room in a floor plan of the rooms' level.
type tagRoomsHandler struct{}

func (tagRoomsHandler) Family() ir.Family { return ir.FamilyCreation }

func (tagRoomsHandler) Policy(ir.ActionKind) TxPolicy {
	return TxPolicy{Granularity: PerBatch, Warnings: Suppress}
}

// Validate accepts an empty room list; it means every placed room.
func (tagRoomsHandler) Validate(*ir.Request) error { return nil }

var (
	errNoPlacedRooms = errors.New("no placed rooms to tag")
	errNoTagType     = errors.New("no room tag type available")
)

func (h tagRoomsHandler) Execute(ec *ExecContext, req *ir.Request, agg *Aggregator) error {
	p := req.Payload.(*ir.TagRoomsPayload)

	levelID, ok := tagLevel(ec.Doc, req.TargetIDs)
	if !ok {
		return errNoPlacedRooms
	}

	plan, switched, err := ensurePlanView(ec, levelID)
	if err != nil {
		return err
	}
	agg.SetDetail("viewSwitched", switched)
	agg.SetDetail("viewName", plan.Name)

	targets := req.TargetIDs
	if len(targets) == 0 {
		for _, r := range ec.Doc.ElementsOfKind(host.KindRoom) {
			if r.LevelID == levelID && r.Room.Placed() {
				targets = append(targets, r.ID)
			}
		}
		agg.Expand(targets)
	}

	tagType, ok := roomTagType(ec.Doc, p.TagTypeID)
	if !ok {
		return errNoTagType
	}

	tagged := ec.Doc.RoomTagsIn(plan.ID)
	tags := make([]ir.TagResult, 0, len(targets))
	ws, err := ec.Transact("Tag rooms", h.Policy(req.Kind), func() error {
		resolveEach(ec, targets, agg, func(e *host.Element) {
			switch {
			case e.Room == nil:
				agg.FailErr(e.ID, NewUnsupportedError(e.ID, "element is not a room"))
				return
			case !e.Room.Placed():
				agg.FailErr(e.ID, NewUnsupportedError(e.ID, "room is not placed"))
				return
			}
			if _, ok := tagged[e.ID]; ok {
				agg.FailErr(e.ID, NewUnsupportedError(e.ID, "room already has a tag in this view"))
				return
			}
			tag, err := ec.Doc.NewRoomTag(e.ID, plan.ID, tagType.ID, e.Location, p.UseLeader)
			if err != nil {
				agg.FailErr(e.ID, NewHostMutationError(e.ID, err))
				return
			}
			tagged[e.ID] = tag.ID
			tags = append(tags, ir.TagResult{RoomID: e.ID, TagID: tag.ID})
			agg.Succeed(e.ID)
		})
		return nil
	})
	if err != nil {
		return err
	}

	agg.SetDetail("tags", tags)
	agg.SetDetail("tagTypeName", tagType.Name)
	setWarnings(agg, ws)
	return nil
}

// tagLevel picks the level to tag on: the level of the first target that
// is a room, otherwise the level of any placed room.
func tagLevel(doc *host.Document, ids []ir.ElementID) (ir.ElementID, bool) {
	for _, id := range ids {
		if e, ok := doc.Element(id); ok && e.Room != nil {
			return e.LevelID, true
		}
	}
	for _, r := range doc.ElementsOfKind(host.KindRoom) {
		if r.Room.Placed() {
			return r.LevelID, true
		}
	}
	return 0, false
}

// ensurePlanView returns the active view if it is a floor plan of levelID,
// otherwise switches to the first non-template floor plan of that level.
func ensurePlanView(ec *ExecContext, levelID ir.ElementID) (*host.Element, bool, error) {
	if v := ec.View; v != nil && v.View.Type == host.ViewFloorPlan && v.LevelID == levelID {
		return v, false, nil
	}
	for _, v := range ec.Doc.Views(host.ViewFloorPlan) {
		if v.LevelID != levelID || v.View.Template {
			continue
		}
		if err := ec.Doc.SetActiveView(v.ID); err != nil {
			return nil, false, err
		}
		ec.Logger.Info("switched active view for room tags", "view", v.Name)
		ec.View = v
		return v, true, nil
	}
	name := fmt.Sprintf("%d", levelID)
	if lvl, ok := ec.Doc.Element(levelID); ok {
		name = lvl.Name
	}
	return nil, false, fmt.Errorf("no floor plan view for level '%s'", name)
}

// roomTagType returns the requested tag type, falling back to the first
// available one.
func roomTagType(doc *host.Document, id ir.ElementID) (*host.Element, bool) {
	types := doc.RoomTagTypes()
	if len(types) == 0 {
		return nil, false
	}
	for _, t := range types {
		if t.ID == id {
			return t, true
		}
	}
	return types[0], true
}

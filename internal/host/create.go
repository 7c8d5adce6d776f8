package host

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bimbridge/internal/ir"
)

// CategoryRoomTags is the category of room tag types.
const CategoryRoomTags = "Room Tags"

// CreateLevel adds a level at elevation (internal units). The host names
// it "Level N" where N is one more than the number of levels; if that name
// is taken a duplicate-name warning is posted.
func (d *Document) CreateLevel(elevation float64) (*Element, error) {
	name := fmt.Sprintf("Level %d", len(d.ElementsOfKind(KindLevel))+1)
	e := &Element{
		Kind:     KindLevel,
		Name:     name,
		Category: "Levels",
		Location: ir.XYZ{Z: elevation},
		Level:    &LevelData{Elevation: elevation, BuildingStory: true},
	}
	if err := d.insert(e); err != nil {
		return nil, err
	}
	if d.levelNameTaken(name, e.ID) {
		d.Warn(SeverityWarning, fmt.Sprintf("Duplicate level name %q", name), e.ID)
	}
	return e, nil
}

// SetLevelName renames a level. Level names must be unique; the host
// rejects a duplicate outright.
func (d *Document) SetLevelName(id ir.ElementID, name string) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Level == nil {
		return errors.New("element is not a level")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("level name cannot be empty")
	}
	if d.levelNameTaken(name, id) {
		return fmt.Errorf("name %q is already in use", name)
	}
	prev := e.Name
	if err := d.record(func() { e.Name = prev }); err != nil {
		return err
	}
	e.Name = name
	return nil
}

// SetBuildingStory sets whether a level counts as a building story.
func (d *Document) SetBuildingStory(id ir.ElementID, story bool) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Level == nil {
		return errors.New("element is not a level")
	}
	prev := e.Level.BuildingStory
	if err := d.record(func() { e.Level.BuildingStory = prev }); err != nil {
		return err
	}
	e.Level.BuildingStory = story
	return nil
}

func (d *Document) levelNameTaken(name string, except ir.ElementID) bool {
	for _, l := range d.ElementsOfKind(KindLevel) {
		if l.ID != except && strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// ErrNoViewFamily is returned when the document cannot create a view type.
var ErrNoViewFamily = errors.New("no view family type available")

// CreateView creates a plan or 3D view. Plan views are associated with
// levelID and named after the level.
func (d *Document) CreateView(t ViewType, levelID ir.ElementID) (*Element, error) {
	if !d.viewFamilies[t] {
		return nil, fmt.Errorf("%s: %w", t, ErrNoViewFamily)
	}
	name := string(t)
	if levelID != 0 {
		lvl, err := d.resolve(levelID)
		if err != nil {
			return nil, err
		}
		name = lvl.Name
		if t == ViewCeilingPlan {
			name += " Ceiling"
		}
	}
	e := &Element{
		Kind:     KindView,
		Name:     name,
		Category: "Views",
		LevelID:  levelID,
		View:     NewViewData(t),
	}
	if err := d.insert(e); err != nil {
		return nil, err
	}
	return e, nil
}

// Views returns views of type t ordered by id. An empty t matches all.
func (d *Document) Views(t ViewType) []*Element {
	var out []*Element
	for _, e := range d.ElementsOfKind(KindView) {
		if t == "" || e.View.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// RegionAt returns the enclosed region on levelID containing (x, y).
func (d *Document) RegionAt(levelID ir.ElementID, x, y float64) (Region, bool) {
	for _, r := range d.regions {
		if r.LevelID == levelID && r.Contains(x, y) {
			return r, true
		}
	}
	return Region{}, false
}

// NewRoom places a room at (x, y) on a level. It fails if the point is not
// inside an enclosed region. The host numbers rooms by counting them and
// posts a duplicate-number warning when that count is already used.
func (d *Document) NewRoom(levelID ir.ElementID, x, y float64) (*Element, error) {
	lvl, err := d.resolve(levelID)
	if err != nil {
		return nil, err
	}
	if lvl.Level == nil {
		return nil, errors.New("room level is not a level")
	}
	region, ok := d.RegionAt(levelID, x, y)
	if !ok {
		return nil, errors.New("point is not inside an enclosed region")
	}

	number := strconv.Itoa(len(d.ElementsOfKind(KindRoom)) + 1)
	e := &Element{
		Kind:     KindRoom,
		Name:     "Room",
		Category: "Rooms",
		LevelID:  levelID,
		Location: ir.XYZ{X: x, Y: y, Z: lvl.Level.Elevation},
		Bounds: &ir.Box{
			Min: ir.XYZ{X: region.Min.X, Y: region.Min.Y, Z: lvl.Level.Elevation},
			Max: ir.XYZ{X: region.Max.X, Y: region.Max.Y, Z: lvl.Level.Elevation + 10},
		},
		Room: &RoomData{
			Number:    number,
			Area:      region.Area(),
			Perimeter: region.Perimeter(),
		},
	}
	if err := d.insert(e); err != nil {
		return nil, err
	}
	if d.roomNumberTaken(number, e.ID) {
		d.Warn(SeverityWarning, fmt.Sprintf("Room Number %q is a duplicate", number), e.ID)
	}
	return e, nil
}

// RoomUpdate lists room fields to change. Nil fields are left alone.
type RoomUpdate struct {
	Name         *string
	Number       *string
	UpperLimitID *ir.ElementID
	LimitOffset  *float64
	BaseOffset   *float64
	Department   *string
	Comments     *string
}

// UpdateRoom applies u to a room. Setting a number that another room uses
// posts a duplicate-number warning rather than failing.
func (d *Document) UpdateRoom(id ir.ElementID, u RoomUpdate) error {
	e, err := d.resolve(id)
	if err != nil {
		return err
	}
	if e.Room == nil {
		return errors.New("element is not a room")
	}
	if u.UpperLimitID != nil {
		if ul, ok := d.elements[*u.UpperLimitID]; !ok || ul.Level == nil {
			return fmt.Errorf("upper limit %d is not a level", *u.UpperLimitID)
		}
	}

	prevName := e.Name
	prevRoom := *e.Room
	if err := d.record(func() {
		e.Name = prevName
		*e.Room = prevRoom
	}); err != nil {
		return err
	}

	if u.Name != nil {
		e.Name = *u.Name
	}
	if u.Number != nil {
		e.Room.Number = *u.Number
		if d.roomNumberTaken(*u.Number, id) {
			d.Warn(SeverityWarning, fmt.Sprintf("Room Number %q is a duplicate", *u.Number), id)
		}
	}
	if u.UpperLimitID != nil {
		e.Room.UpperLimitID = *u.UpperLimitID
	}
	if u.LimitOffset != nil {
		e.Room.LimitOffset = *u.LimitOffset
	}
	if u.BaseOffset != nil {
		e.Room.BaseOffset = *u.BaseOffset
	}
	if u.Department != nil {
		e.Room.Department = *u.Department
	}
	if u.Comments != nil {
		e.Room.Comments = *u.Comments
	}
	return nil
}

func (d *Document) roomNumberTaken(number string, except ir.ElementID) bool {
	for _, r := range d.ElementsOfKind(KindRoom) {
		if r.ID != except && strings.EqualFold(r.Room.Number, number) {
			return true
		}
	}
	return false
}

// RoomTagTypes returns the available room tag types ordered by id.
func (d *Document) RoomTagTypes() []*Element {
	var out []*Element
	for _, e := range d.ElementsOfKind(KindType) {
		if e.Category == CategoryRoomTags {
			out = append(out, e)
		}
	}
	return out
}

// RoomTagsIn returns the tags placed in a view, keyed by room id.
func (d *Document) RoomTagsIn(viewID ir.ElementID) map[ir.ElementID]ir.ElementID {
	out := make(map[ir.ElementID]ir.ElementID)
	for _, e := range d.ElementsOfKind(KindRoomTag) {
		if e.Tag.ViewID == viewID {
			out[e.Tag.RoomID] = e.ID
		}
	}
	return out
}

// NewRoomTag tags a room in a plan view at point.
func (d *Document) NewRoomTag(roomID, viewID, typeID ir.ElementID, point ir.XYZ, leader bool) (*Element, error) {
	room, err := d.resolve(roomID)
	if err != nil {
		return nil, err
	}
	if room.Room == nil {
		return nil, errors.New("element is not a room")
	}
	v, err := d.view(viewID)
	if err != nil {
		return nil, err
	}
	if v.Type != ViewFloorPlan {
		return nil, errors.New("room tags can only be placed in floor plans")
	}
	tagType, err := d.resolve(typeID)
	if err != nil {
		return nil, err
	}
	if tagType.Category != CategoryRoomTags {
		return nil, fmt.Errorf("element %d is not a room tag type", typeID)
	}

	e := &Element{
		Kind:     KindRoomTag,
		Name:     tagType.Name,
		Category: CategoryRoomTags,
		LevelID:  room.LevelID,
		Location: point,
		Tag: &TagData{
			RoomID:    roomID,
			ViewID:    viewID,
			TypeID:    typeID,
			HasLeader: leader,
		},
	}
	if err := d.insert(e); err != nil {
		return nil, err
	}
	return e, nil
}

package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// Fixture element ids.
const (
	Level1ID     ir.ElementID = 1
	View3DID     ir.ElementID = 2
	Plan1ID      ir.ElementID = 3
	Level2ID     ir.ElementID = 4
	Plan2ID      ir.ElementID = 5
	DoorID       ir.ElementID = 10
	WallID       ir.ElementID = 11
	DeskID       ir.ElementID = 12
	DoorTypeID   ir.ElementID = 13
	RoomTagType  ir.ElementID = 14
	OfficeRoomID ir.ElementID = 20
	MissingID    ir.ElementID = 999
)

// Document builds the shared test model:
//
//	1   Level 1 (elevation 0)
//	2   {3D} view (active)
//	3   floor plan "Level 1"
//	4   Level 2 (elevation 3000 mm)
//	5   floor plan "Level 2"
//	10  door hosted by wall 11, flippable
//	11  wall
//	12  desk with Comments, Width, Area (read-only) and Mark parameters
//	13  door type
//	14  room tag type "Room Tag"
//	20  room "Office" number "101", placed on level 1
//
// Level 1 has one enclosed region, 20 x 10 ft, at the origin.
func Document(t testing.TB) *host.Document {
	t.Helper()
	d := host.NewDocument()

	seed := func(e *host.Element) {
		_, err := d.Seed(e)
		require.NoError(t, err)
	}

	seed(&host.Element{ID: Level1ID, Kind: host.KindLevel, Name: "Level 1", Level: &host.LevelData{Elevation: 0, BuildingStory: true}})
	seed(&host.Element{ID: View3DID, Kind: host.KindView, Name: "{3D}", View: host.NewViewData(host.ViewThreeD)})
	seed(&host.Element{ID: Plan1ID, Kind: host.KindView, Name: "Level 1", LevelID: Level1ID, View: host.NewViewData(host.ViewFloorPlan)})
	seed(&host.Element{ID: Level2ID, Kind: host.KindLevel, Name: "Level 2", Level: &host.LevelData{Elevation: units.MMToInternal(3000), BuildingStory: true}})
	seed(&host.Element{ID: Plan2ID, Kind: host.KindView, Name: "Level 2", LevelID: Level2ID, View: host.NewViewData(host.ViewFloorPlan)})
	seed(&host.Element{
		ID: DoorID, Kind: host.KindInstance, Name: "Door", Category: "Doors",
		HostID: WallID, LevelID: Level1ID, CanFlipHand: true, CanFlipFacing: true,
		Location: ir.XYZ{X: 5, Y: 0, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 4.5, Y: -0.5, Z: 0}, Max: ir.XYZ{X: 5.5, Y: 0.5, Z: 7}},
	})
	seed(&host.Element{
		ID: WallID, Kind: host.KindWall, Name: "Wall", Category: "Walls", LevelID: Level1ID,
		Location: ir.XYZ{X: 5, Y: 0, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 0, Y: -0.5, Z: 0}, Max: ir.XYZ{X: 10, Y: 0.5, Z: 10}},
	})
	seed(&host.Element{
		ID: DeskID, Kind: host.KindInstance, Name: "Desk", Category: "Furniture", LevelID: Level1ID,
		Location: ir.XYZ{X: 2, Y: 3, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 1, Y: 2, Z: 0}, Max: ir.XYZ{X: 3, Y: 4, Z: 2.5}},
		Params: []*host.Parameter{
			{Name: "Comments", Builtin: "ALL_MODEL_INSTANCE_COMMENTS", Storage: host.StorageString, Value: ""},
			{Name: "Width", Storage: host.StorageDouble, Measure: units.MeasureLength, Value: 4.0},
			{Name: "Area", Storage: host.StorageDouble, ReadOnly: true, Value: 8.0},
			{Name: "Mark", Storage: host.StorageInteger, Value: int64(0)},
		},
	})
	seed(&host.Element{ID: DoorTypeID, Kind: host.KindType, Name: "Single Door", Category: "Doors"})
	seed(&host.Element{ID: RoomTagType, Kind: host.KindType, Name: "Room Tag", Category: host.CategoryRoomTags})

	region := host.Region{LevelID: Level1ID, Min: ir.XYZ{X: 0, Y: 0}, Max: ir.XYZ{X: 20, Y: 10}}
	d.AddRegion(region)
	seed(&host.Element{
		ID: OfficeRoomID, Kind: host.KindRoom, Name: "Office", Category: "Rooms", LevelID: Level1ID,
		Location: ir.XYZ{X: 10, Y: 5, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 0, Y: 0, Z: 0}, Max: ir.XYZ{X: 20, Y: 10, Z: 10}},
		Room:     &host.RoomData{Number: "101", Area: region.Area(), Perimeter: region.Perimeter()},
	})

	require.NoError(t, d.SetActiveView(View3DID))
	return d
}

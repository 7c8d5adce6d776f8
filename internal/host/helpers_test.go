package host

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/units"
)

// testDoc builds a small document:
//
//	1   Level 1 (elevation 0)
//	2   3D view (active)
//	3   floor plan of level 1
//	10  door, hosted by wall 11, flippable
//	11  wall
//	12  desk, unhosted, with Comments/Width/Mark parameters
//	13  door type (type-level)
//	14  room tag type
func testDoc(t *testing.T) *Document {
	t.Helper()
	d := NewDocument()

	seed := func(e *Element) {
		_, err := d.Seed(e)
		require.NoError(t, err)
	}

	seed(&Element{ID: 1, Kind: KindLevel, Name: "Level 1", Level: &LevelData{Elevation: 0, BuildingStory: true}})
	seed(&Element{ID: 2, Kind: KindView, Name: "{3D}", View: NewViewData(ViewThreeD)})
	seed(&Element{ID: 3, Kind: KindView, Name: "Level 1", LevelID: 1, View: NewViewData(ViewFloorPlan)})
	seed(&Element{
		ID: 10, Kind: KindInstance, Name: "Door", Category: "Doors",
		HostID: 11, LevelID: 1, CanFlipHand: true, CanFlipFacing: true,
		Location: ir.XYZ{X: 5, Y: 0, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 4.5, Y: -0.5, Z: 0}, Max: ir.XYZ{X: 5.5, Y: 0.5, Z: 7}},
	})
	seed(&Element{
		ID: 11, Kind: KindWall, Name: "Wall", Category: "Walls", LevelID: 1,
		Location: ir.XYZ{X: 5, Y: 0, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 0, Y: -0.5, Z: 0}, Max: ir.XYZ{X: 10, Y: 0.5, Z: 10}},
	})
	seed(&Element{
		ID: 12, Kind: KindInstance, Name: "Desk", Category: "Furniture", LevelID: 1,
		Location: ir.XYZ{X: 2, Y: 3, Z: 0},
		Bounds:   &ir.Box{Min: ir.XYZ{X: 1, Y: 2, Z: 0}, Max: ir.XYZ{X: 3, Y: 4, Z: 2.5}},
		Params: []*Parameter{
			{Name: "Comments", Builtin: "ALL_MODEL_INSTANCE_COMMENTS", Storage: StorageString, Value: ""},
			{Name: "Width", Storage: StorageDouble, Measure: units.MeasureLength, Value: 4.0},
			{Name: "Area", Storage: StorageDouble, ReadOnly: true, Value: 8.0},
		},
	})
	seed(&Element{ID: 13, Kind: KindType, Name: "Single Door", Category: "Doors"})
	seed(&Element{ID: 14, Kind: KindType, Name: "Room Tag", Category: CategoryRoomTags})

	d.AddRegion(Region{LevelID: 1, Min: ir.XYZ{X: 0, Y: 0}, Max: ir.XYZ{X: 20, Y: 10}})
	require.NoError(t, d.SetActiveView(2))
	return d
}

// inTx runs fn inside a committed transaction.
func inTx(t *testing.T, d *Document, fn func()) {
	t.Helper()
	tx, err := d.Begin("test")
	require.NoError(t, err)
	fn()
	require.NoError(t, tx.Commit())
}

package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ident"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/testutil"
)

func createRooms(specs ...ir.RoomSpec) *ir.Request {
	return &ir.Request{Kind: ir.ActionCreateRoom, Payload: &ir.RoomsPayload{Rooms: specs}}
}

// room places a room inside the fixture's level 1 region.
func room(number string) ir.RoomSpec {
	return ir.RoomSpec{X: ptr(1000.0), Y: ptr(1000.0), Number: number}
}

func roomResults(t *testing.T, resp ir.Response) []ir.RoomResult {
	t.Helper()
	rooms, ok := resp.Response.Details["rooms"].([]ir.RoomResult)
	require.True(t, ok, "details.rooms missing")
	return rooms
}

func TestRoom_Validation(t *testing.T) {
	err := newDispatcher().Validate(createRooms(ir.RoomSpec{X: ptr(1.0)}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rooms[0].y is required")
}

func TestRoom_SameRequestedNumberTwice(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, createRooms(room("400"), room("400")))

	require.True(t, resp.Success, resp.Message)
	rooms := roomResults(t, resp)
	require.Len(t, rooms, 2)

	assert.Equal(t, "400", rooms[0].Number)
	assert.Equal(t, string(ident.StrategyUnchanged), rooms[0].NumberStrategy)
	assert.Equal(t, "401", rooms[1].Number)
	assert.Equal(t, "400", rooms[1].RequestedNumber)
	assert.Equal(t, string(ident.StrategyIncremented), rooms[1].NumberStrategy)
	assert.NotContains(t, resp.Response.Details, "warnings", "duplicate warnings are suppressed")
}

func TestRoom_NumberAllocation(t *testing.T) {
	tests := []struct {
		name     string
		spec     ir.RoomSpec
		number   string
		strategy ident.Strategy
	}{
		{"taken number increments", room("101"), "102", ident.StrategyIncremented},
		{"empty number takes next", room(""), "102", ident.StrategyNext},
		{"free number is kept", room("101A"), "101A", ident.StrategyUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := dispatch(t, testutil.Document(t), createRooms(tt.spec))
			require.True(t, resp.Success, resp.Message)
			rooms := roomResults(t, resp)
			assert.Equal(t, tt.number, rooms[0].Number)
			assert.Equal(t, string(tt.strategy), rooms[0].NumberStrategy)
		})
	}
}

func TestRoom_Measurements(t *testing.T) {
	doc := testutil.Document(t)
	spec := room("")
	spec.Name = "Lab"
	spec.Department = "Research"
	resp := dispatch(t, doc, createRooms(spec))

	require.True(t, resp.Success, resp.Message)
	r := roomResults(t, resp)[0]
	assert.Equal(t, "Lab", r.Name)
	assert.Equal(t, "Level 1", r.LevelName)
	assert.Equal(t, 18.581, r.Area)
	assert.Equal(t, 18288.0, r.Perimeter)

	e, ok := doc.Element(r.ID)
	require.True(t, ok)
	assert.Equal(t, "Research", e.Room.Department)
}

func TestRoom_FailedItemReleasesNumber(t *testing.T) {
	doc := testutil.Document(t)
	outside := ir.RoomSpec{X: ptr(100000.0), Y: ptr(100000.0), Number: "500"}
	resp := dispatch(t, doc, createRooms(outside, room("500")))

	require.Len(t, resp.Response.FailedElements, 1)
	assert.Equal(t, 1, resp.Response.FailedElements[0].Item)
	assert.Equal(t, "point is not inside an enclosed region", resp.Response.FailedElements[0].Reason)

	rooms := roomResults(t, resp)
	require.Len(t, rooms, 1)
	assert.Equal(t, "500", rooms[0].Number, "the failed item gave its number back")
}

func TestRoom_FailedItemKeepsEarlierNumber(t *testing.T) {
	doc := testutil.Document(t)
	outside := ir.RoomSpec{X: ptr(100000.0), Y: ptr(1000.0), Number: "400"}
	resp := dispatch(t, doc, createRooms(room("400"), outside, room("400")))

	assert.False(t, resp.Success)
	require.Len(t, resp.Response.FailedElements, 1)
	assert.Equal(t, 2, resp.Response.FailedElements[0].Item)

	rooms := roomResults(t, resp)
	require.Len(t, rooms, 2)
	assert.Equal(t, "400", rooms[0].Number)
	assert.Equal(t, "401", rooms[1].Number)
	assert.Equal(t, string(ident.StrategyIncremented), rooms[1].NumberStrategy)

	var numbers []string
	for _, e := range doc.ElementsOfKind(host.KindRoom) {
		numbers = append(numbers, e.Room.Number)
	}
	assert.ElementsMatch(t, []string{"101", "400", "401"}, numbers)
}

func TestAllocateNumber_ReportsAdded(t *testing.T) {
	ledger := ident.NewLedger([]string{"400"})

	number, strategy, added := allocateNumber(ledger, "400")
	assert.Equal(t, "401", number)
	assert.Equal(t, ident.StrategyIncremented, strategy)
	assert.True(t, added)

	number, _, added = allocateNumber(ledger, "")
	assert.Equal(t, "402", number)
	assert.True(t, added)
}

func TestRoom_UnknownLevel(t *testing.T) {
	spec := room("")
	spec.LevelID = testutil.MissingID
	resp := dispatch(t, testutil.Document(t), createRooms(spec))

	require.Len(t, resp.Response.FailedElements, 1)
	assert.Equal(t, "level 999 not found", resp.Response.FailedElements[0].Reason)
	assert.Equal(t, testutil.MissingID, resp.Response.FailedElements[0].ElementID)
}

func TestRoomLevel_Resolution(t *testing.T) {
	doc := testutil.Document(t)
	levels := doc.Levels()

	lvl, err := roomLevel(doc, levels, ir.RoomSpec{LevelID: testutil.Level2ID})
	require.NoError(t, err)
	assert.Equal(t, testutil.Level2ID, lvl.ID)

	lvl, err = roomLevel(doc, levels, ir.RoomSpec{Z: ptr(2900.0)})
	require.NoError(t, err)
	assert.Equal(t, testutil.Level2ID, lvl.ID)

	lvl, err = roomLevel(doc, levels, ir.RoomSpec{})
	require.NoError(t, err)
	assert.Equal(t, testutil.Level1ID, lvl.ID)

	_, err = roomLevel(doc, levels, ir.RoomSpec{LevelID: testutil.DeskID})
	assert.Error(t, err)
}

func TestRoom_NoLevelsFailsEveryItem(t *testing.T) {
	resp := dispatch(t, host.NewDocument(), createRooms(room("1"), room("2")))

	assert.False(t, resp.Success)
	require.Len(t, resp.Response.FailedElements, 2)
	assert.Equal(t, "document has no levels", resp.Response.FailedElements[1].Reason)
}

func TestRoom_UniquenessExhausted(t *testing.T) {
	doc := testutil.Document(t)
	taken := []string{"A"}
	for c := 'A'; c <= 'Z'; c++ {
		taken = append(taken, "A"+string(c))
	}
	for k := 2; k <= 1000; k++ {
		taken = append(taken, fmt.Sprintf("A-%d", k))
	}
	for i, n := range taken {
		_, err := doc.Seed(&host.Element{
			ID: ir.ElementID(1000 + i), Kind: host.KindRoom, LevelID: testutil.Level1ID,
			Room: &host.RoomData{Number: n},
		})
		require.NoError(t, err)
	}

	resp := dispatch(t, doc, createRooms(room("A")))

	require.True(t, resp.Success, resp.Message)
	r := roomResults(t, resp)[0]
	assert.Equal(t, "A-ZZZZ", r.Number)
	assert.Equal(t, string(ident.StrategyRandom), r.NumberStrategy)
	assert.Equal(t, string(ErrCodeUniquenessExhausted), resp.Response.Details["numberStrategy"])
}

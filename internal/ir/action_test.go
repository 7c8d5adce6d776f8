package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionKind(t *testing.T) {
	tests := []struct {
		in     string
		want   ActionKind
		family Family
	}{
		{"SetParameter", ActionSetParameter, FamilyModify},
		{"Delete", ActionDelete, FamilyModify},
		{"Flip", ActionFlip, FamilyTransform},
		{"ResetIsolate", ActionResetIsolate, FamilyVisibility},
		{"SelectionBox", ActionSelectionBox, FamilyVisual},
		{"CreateRoom", ActionCreateRoom, FamilyCreation},
		{"FilterElements", ActionFilterElements, FamilyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseActionKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.family, got.Family())
			assert.True(t, got.Valid())
		})
	}
}

func TestParseActionKind_Unknown(t *testing.T) {
	for _, in := range []string{"", "hide", "Explode", "setparameter"} {
		_, err := ParseActionKind(in)
		assert.Error(t, err, "input %q", in)
	}
	assert.False(t, ActionKind("Explode").Valid())
	assert.Equal(t, Family(""), ActionKind("Explode").Family())
}

func TestActionKinds_EveryKindHasOneFamily(t *testing.T) {
	all := AllActionKinds()
	require.Len(t, all, 21)

	seen := make(map[ActionKind]bool)
	total := 0
	for _, f := range Families {
		kinds := KindsOf(f)
		require.NotEmpty(t, kinds, "family %s", f)
		for _, k := range kinds {
			assert.False(t, seen[k], "kind %s listed twice", k)
			seen[k] = true
			assert.Equal(t, f, k.Family())
		}
		total += len(kinds)
	}
	assert.Equal(t, len(all), total)
}

func TestKindsOf_ReturnsCopy(t *testing.T) {
	kinds := KindsOf(FamilyModify)
	kinds[0] = "Mutated"
	assert.Equal(t, ActionSetParameter, KindsOf(FamilyModify)[0])
}

func TestRequestAttempted(t *testing.T) {
	elev := 3000.0
	x, y := 1.0, 2.0

	tests := []struct {
		name string
		req  Request
		want int
	}{
		{"targets", Request{Kind: ActionHide, TargetIDs: []ElementID{1, 2, 2}}, 3},
		{"reset ignores targets", Request{Kind: ActionResetIsolate, TargetIDs: []ElementID{1, 2}}, 0},
		{"levels", Request{Kind: ActionCreateLevel, Payload: &LevelsPayload{Levels: []LevelSpec{{Elevation: &elev}, {Elevation: &elev}}}}, 2},
		{"rooms", Request{Kind: ActionCreateRoom, Payload: &RoomsPayload{Rooms: []RoomSpec{{X: &x, Y: &y}}}}, 1},
		{"tag rooms", Request{Kind: ActionTagRooms, TargetIDs: []ElementID{7}, Payload: &TagRoomsPayload{}}, 1},
		{"status ignores targets", Request{Kind: ActionGetStatus, TargetIDs: []ElementID{1}, Payload: &StatusPayload{}}, 0},
		{"filter ids", Request{Kind: ActionFilterElements, TargetIDs: []ElementID{1, 2}, Payload: &FilterPayload{}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.req.Attempted())
		})
	}
}

func TestPayloadFamily(t *testing.T) {
	assert.Equal(t, FamilyModify, PayloadFamily(&ModifyPayload{}))
	assert.Equal(t, FamilyVisual, PayloadFamily(&VisualPayload{}))
	assert.Equal(t, FamilyCreation, PayloadFamily(&TagRoomsPayload{}))
	assert.Equal(t, FamilyQuery, PayloadFamily(&FilterPayload{}))
	assert.Equal(t, Family(""), PayloadFamily(nil))
}

func TestActionKind_ReadOnly(t *testing.T) {
	assert.True(t, ActionGetStatus.ReadOnly())
	assert.True(t, ActionFilterElements.ReadOnly())
	assert.False(t, ActionSelect.ReadOnly())
	assert.False(t, ActionKind("Explode").ReadOnly())
}

func TestFilterPayload_Defaults(t *testing.T) {
	p := &FilterPayload{NameKeyword: "door"}
	assert.True(t, p.Instances())
	assert.True(t, p.KeywordOnly())

	off := false
	p.IncludeInstances = &off
	p.Category = "Doors"
	assert.False(t, p.Instances())
	assert.False(t, p.KeywordOnly())
}

func TestBoxUnionAndGrow(t *testing.T) {
	a := Box{Min: XYZ{0, 0, 0}, Max: XYZ{1, 1, 1}}
	b := Box{Min: XYZ{-1, 2, 0}, Max: XYZ{0, 3, 4}}

	u := a.Union(b)
	assert.Equal(t, XYZ{-1, 0, 0}, u.Min)
	assert.Equal(t, XYZ{1, 3, 4}, u.Max)

	g := a.Grow(1)
	assert.Equal(t, XYZ{-1, -1, -1}, g.Min)
	assert.Equal(t, XYZ{2, 2, 2}, g.Max)
	assert.Equal(t, XYZ{0.5, 0.5, 0.5}, a.Center())
}

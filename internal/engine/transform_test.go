package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bimbridge/internal/host"
	"github.com/roach88/bimbridge/internal/ir"
	"github.com/roach88/bimbridge/internal/testutil"
	"github.com/roach88/bimbridge/internal/units"
)

func transform(kind ir.ActionKind, p *ir.TransformPayload, targets ...ir.ElementID) *ir.Request {
	return &ir.Request{Kind: kind, TargetIDs: targets, Payload: p}
}

func location(t *testing.T, doc *host.Document, id ir.ElementID) ir.XYZ {
	t.Helper()
	e, ok := doc.Element(id)
	require.True(t, ok)
	return e.Location
}

func assertNear(t *testing.T, want, got ir.XYZ) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestTransform_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  *ir.Request
		msg  string
	}{
		{"rotate without angle", transform(ir.ActionRotate, &ir.TransformPayload{}, 12), "rotationAngle is required for Rotate"},
		{"degenerate axis", transform(ir.ActionRotate, &ir.TransformPayload{
			RotationAngle: ptr(90.0),
			RotationAxis:  &ir.Line{P0: ir.XYZ{X: 1}, P1: ir.XYZ{X: 1}},
		}, 12), "rotationAxis must have two distinct points"},
		{"zero mirror normal", transform(ir.ActionMirror, &ir.TransformPayload{
			MirrorPlane: &ir.Plane{Normal: &ir.XYZ{}},
		}, 12), "mirrorPlane.normal must be non-zero"},
		{"mirror plane without normal", transform(ir.ActionMirror, &ir.TransformPayload{
			MirrorPlane: &ir.Plane{},
		}, 12), "mirrorPlane.normal is required"},
		{"flip without direction", transform(ir.ActionFlip, &ir.TransformPayload{}, 12), "flipDirection is required for Flip"},
		{"bad flip direction", transform(ir.ActionFlip, &ir.TransformPayload{FlipDirection: "Sideways"}, 12), "flipDirection must be one of: Hand, Facing"},
		{"move without vector", transform(ir.ActionMove, &ir.TransformPayload{}, 12), "moveVector is required for Move"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newDispatcher().Validate(tt.req)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestTransform_RotateAboutExplicitAxis(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionRotate, &ir.TransformPayload{
		RotationAngle: ptr(90.0),
		RotationAxis:  &ir.Line{P0: ir.XYZ{}, P1: ir.XYZ{Z: 1000}},
	}, testutil.DeskID))

	require.True(t, resp.Success, resp.Message)
	assertNear(t, ir.XYZ{X: -3, Y: 2}, location(t, doc, testutil.DeskID))
	assert.Equal(t, 90.0, resp.Response.Details["rotateAngle"])
}

func TestTransform_RotateDefaultsToFirstElementAxis(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionRotate, &ir.TransformPayload{RotationAngle: ptr(45.0)},
		testutil.MissingID, testutil.DeskID))

	assert.Equal(t, ids(testutil.DeskID), resp.Response.SuccessfulElements)
	// Rotating about a vertical axis through itself keeps the location.
	assertNear(t, ir.XYZ{X: 2, Y: 3}, location(t, doc, testutil.DeskID))

	axis := resp.Response.Details["rotateAxis"].(ir.Line)
	assertNear(t, units.PointToMM(ir.XYZ{X: 2, Y: 3}), axis.P0)
}

func TestTransform_NoResolvableReferenceFailsBatch(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionRotate, &ir.TransformPayload{RotationAngle: ptr(45.0)},
		testutil.MissingID, 998))

	assert.False(t, resp.Success)
	assert.Equal(t, ids(testutil.MissingID, 998), failedIDs(resp.Response))
	assert.Equal(t, "no target element could be resolved", resp.Response.Details["error"])
}

func TestTransform_MirrorDefaultPlane(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionMirror, &ir.TransformPayload{}, testutil.DeskID, testutil.WallID))

	require.True(t, resp.Success, resp.Message)
	// The YZ plane through the desk at x=2 sends the wall at x=5 to x=-1.
	assertNear(t, ir.XYZ{X: -1}, location(t, doc, testutil.WallID))
	wall, _ := doc.Element(testutil.WallID)
	assert.True(t, wall.Mirrored)
}

func TestTransform_Flip(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionFlip, &ir.TransformPayload{FlipDirection: "Hand"},
		testutil.DoorID, testutil.DeskID, testutil.WallID))

	assert.Equal(t, ids(testutil.DoorID), resp.Response.SuccessfulElements)
	assert.Equal(t, "does not support hand flip", reasonFor(t, resp.Response, testutil.DeskID))
	assert.Equal(t, "only family instances support flip", reasonFor(t, resp.Response, testutil.WallID))

	door, _ := doc.Element(testutil.DoorID)
	assert.True(t, door.HandFlipped)
	assert.Equal(t, "Hand", resp.Response.Details["flipDirection"])
}

func TestTransform_Move(t *testing.T) {
	doc := testutil.Document(t)
	resp := dispatch(t, doc, transform(ir.ActionMove, &ir.TransformPayload{MoveVector: &ir.XYZ{X: 304.8}},
		testutil.DeskID, testutil.DoorID, testutil.DoorTypeID, testutil.WallID))

	assert.Equal(t, ids(testutil.DeskID, testutil.WallID), resp.Response.SuccessfulElements)
	assert.Contains(t, reasonFor(t, resp.Response, testutil.DoorID), "hosted")
	assert.Equal(t, "element type does not support move", reasonFor(t, resp.Response, testutil.DoorTypeID))

	assertNear(t, ir.XYZ{X: 3, Y: 3}, location(t, doc, testutil.DeskID))
	// The door rides along with its wall.
	assertNear(t, ir.XYZ{X: 6}, location(t, doc, testutil.DoorID))
	assert.Equal(t, "directTransform", resp.Response.Details["moveStrategy"])
}

func TestTransform_PinnedElementIsHostMutation(t *testing.T) {
	doc := testutil.Document(t)
	desk, _ := doc.Element(testutil.DeskID)
	desk.Pinned = true

	resp := dispatch(t, doc, transform(ir.ActionMove, &ir.TransformPayload{MoveVector: &ir.XYZ{X: 100}},
		testutil.DeskID, testutil.WallID))

	assert.Equal(t, ids(testutil.WallID), resp.Response.SuccessfulElements)
	assert.Equal(t, host.ErrPinned.Error(), reasonFor(t, resp.Response, testutil.DeskID))
}

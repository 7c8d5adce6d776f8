package ir

// ElementID is an opaque reference into the host document.
// Equality is identity: two ElementIDs refer to the same element iff they
// are equal. The core never owns the referent.
type ElementID int64

// InvalidElementID is never assigned by the host.
const InvalidElementID ElementID = -1

// Request is a single batch operation. It is created once per call,
// consumed exactly once by the bridge, and discarded after the response
// is delivered.
type Request struct {
	ID        string      `json:"id"`
	Kind      ActionKind  `json:"kind"`
	TargetIDs []ElementID `json:"targetIds"` // Ordered, duplicates allowed
	Payload   Payload     `json:"payload,omitempty"`
}

// Attempted returns the number of targets the request asks the host to
// process. This is the processedCount reported on every terminal path.
func (r *Request) Attempted() int {
	switch p := r.Payload.(type) {
	case *LevelsPayload:
		return len(p.Levels)
	case *RoomsPayload:
		return len(p.Rooms)
	}
	if r.Kind.TargetsIgnored() {
		return 0
	}
	return len(r.TargetIDs)
}

// Payload is the action-specific part of a Request. The concrete type is
// determined by the request's ActionKind family.
type Payload interface {
	payloadFamily() Family
}

// ModifyPayload carries SetParameter arguments. Delete has no arguments.
type ModifyPayload struct {
	ParameterName  string `json:"parameterName,omitempty"`
	ParameterValue any    `json:"parameterValue,omitempty"`
}

// TransformPayload carries arguments for Rotate, Mirror, Flip and Move.
// Which fields are required depends on the action.
type TransformPayload struct {
	RotationAxis  *Line    `json:"rotationAxis,omitempty"`
	RotationAngle *float64 `json:"rotationAngle,omitempty"` // degrees
	MirrorPlane   *Plane   `json:"mirrorPlane,omitempty"`
	FlipDirection string   `json:"flipDirection,omitempty" validate:"omitempty,oneof=Hand Facing"`
	MoveVector    *XYZ     `json:"moveVector,omitempty"` // millimeters
}

// VisibilityPayload has no arguments beyond the action itself.
type VisibilityPayload struct{}

// VisualPayload carries override arguments. Out-of-range values are
// clamped, never rejected.
type VisualPayload struct {
	Color        []int `json:"color,omitempty"`        // [r,g,b], defaults to red
	Transparency *int  `json:"transparency,omitempty"` // 0..100, defaults to 50
}

// LevelSpec describes one level to create.
type LevelSpec struct {
	Name              string   `json:"name,omitempty" yaml:"name"`
	Elevation         *float64 `json:"elevation" yaml:"elevation" validate:"required"` // millimeters
	IsBuildingStory   *bool    `json:"isBuildingStory,omitempty" yaml:"isBuildingStory"`
	CreateFloorPlan   bool     `json:"createFloorPlan,omitempty" yaml:"createFloorPlan"`
	CreateCeilingPlan bool     `json:"createCeilingPlan,omitempty" yaml:"createCeilingPlan"`
}

// LevelsPayload is the CreateLevel batch.
type LevelsPayload struct {
	Levels []LevelSpec `json:"levels" validate:"required,min=1,dive"`
}

// RoomSpec describes one room to place. Coordinates are millimeters.
type RoomSpec struct {
	X            *float64  `json:"x" validate:"required"`
	Y            *float64  `json:"y" validate:"required"`
	Z            *float64  `json:"z,omitempty"`
	LevelID      ElementID `json:"levelId,omitempty"`
	Name         string    `json:"name,omitempty"`
	Number       string    `json:"number,omitempty"`
	UpperLimitID ElementID `json:"upperLimitId,omitempty"`
	LimitOffset  *float64  `json:"limitOffset,omitempty"`
	BaseOffset   *float64  `json:"baseOffset,omitempty"`
	Department   string    `json:"department,omitempty"`
	Comments     string    `json:"comments,omitempty"`
}

// RoomsPayload is the CreateRoom batch.
type RoomsPayload struct {
	Rooms []RoomSpec `json:"rooms" validate:"required,min=1,dive"`
}

// TagRoomsPayload carries TagRooms arguments. The rooms themselves are the
// request's TargetIDs; an empty list means every placed room on the level
// of the active plan.
type TagRoomsPayload struct {
	UseLeader bool      `json:"useLeader,omitempty"`
	TagTypeID ElementID `json:"tagTypeId,omitempty"`
}

// StatusPayload has no arguments.
type StatusPayload struct{}

// FilterPayload selects elements. Every set criterion must match; the
// request's TargetIDs, when present, restrict the candidates. Name keywords
// match case-insensitively as substrings of the element name.
type FilterPayload struct {
	Category         string    `json:"filterCategory,omitempty"`
	ElementKind      string    `json:"filterElementKind,omitempty" validate:"omitempty,oneof=instance wall floor type level room room_tag view"`
	NameKeyword      string    `json:"filterNameKeyword,omitempty"`
	LevelID          ElementID `json:"filterLevelId,omitempty"`
	VisibleInView    bool      `json:"filterVisibleInCurrentView,omitempty"`
	IncludeTypes     bool      `json:"includeTypes,omitempty"`
	IncludeInstances *bool     `json:"includeInstances,omitempty"` // defaults to true
	MaxElements      *int      `json:"maxElements,omitempty"`      // defaults to 50
}

// Instances reports whether placed (non-type) elements are candidates.
func (p *FilterPayload) Instances() bool {
	return p.IncludeInstances == nil || *p.IncludeInstances
}

// KeywordOnly reports whether the name keyword is the only criterion.
func (p *FilterPayload) KeywordOnly() bool {
	return p.NameKeyword != "" && p.Category == "" && p.ElementKind == "" && p.LevelID == 0
}

func (*ModifyPayload) payloadFamily() Family     { return FamilyModify }
func (*TransformPayload) payloadFamily() Family  { return FamilyTransform }
func (*VisibilityPayload) payloadFamily() Family { return FamilyVisibility }
func (*VisualPayload) payloadFamily() Family     { return FamilyVisual }
func (*LevelsPayload) payloadFamily() Family     { return FamilyCreation }
func (*RoomsPayload) payloadFamily() Family      { return FamilyCreation }
func (*TagRoomsPayload) payloadFamily() Family   { return FamilyCreation }
func (*StatusPayload) payloadFamily() Family     { return FamilyQuery }
func (*FilterPayload) payloadFamily() Family     { return FamilyQuery }

// PayloadFamily returns the family a payload belongs to, or "" for nil.
func PayloadFamily(p Payload) Family {
	if p == nil {
		return ""
	}
	return p.payloadFamily()
}

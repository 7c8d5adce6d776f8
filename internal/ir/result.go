package ir

// FailureRecord describes why one target was not processed.
type FailureRecord struct {
	ElementID ElementID `json:"elementId"`
	Reason    string    `json:"reason"`
	Item      int       `json:"item,omitempty"` // 1-based creation item index, when there is no element yet
}

// OperationResult is the per-request outcome.
//
// INVARIANTS (at a terminal state):
//   - ProcessedCount equals the attempted target count
//   - SuccessfulElements and the ids of FailedElements are disjoint
//   - every target is in exactly one partition, unless validation failed,
//     in which case both partitions are empty
type OperationResult struct {
	ProcessedCount     int             `json:"processedCount"`
	SuccessfulElements []ElementID     `json:"successfulElements"`
	FailedElements     []FailureRecord `json:"failedElements"`
	Details            map[string]any  `json:"details"`
}

// NewOperationResult returns an empty result for attempted targets.
// Slices and the details map are non-nil so they encode as [] and {}.
func NewOperationResult(attempted int) OperationResult {
	return OperationResult{
		ProcessedCount:     attempted,
		SuccessfulElements: []ElementID{},
		FailedElements:     []FailureRecord{},
		Details:            map[string]any{},
	}
}

// Response is the envelope returned to the caller.
type Response struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Response OperationResult `json:"response"`
}

// RoomResult is reported in details.rooms for each created room. A
// RequestedNumber that differs from Number means the allocator adjusted it.
type RoomResult struct {
	ID              ElementID `json:"id"`
	Name            string    `json:"name"`
	Number          string    `json:"number"`
	RequestedNumber string    `json:"requestedNumber,omitempty"`
	NumberStrategy  string    `json:"numberStrategy"`
	LevelName       string    `json:"levelName"`
	Area            float64   `json:"area"`
	Perimeter       float64   `json:"perimeter"`
}

// LevelResult is reported in details.levels for each created level.
type LevelResult struct {
	ID                  ElementID `json:"id"`
	Name                string    `json:"name"`
	Elevation           float64   `json:"elevation"` // millimeters
	FloorPlanViewName   string    `json:"floorPlanViewName,omitempty"`
	CeilingPlanViewName string    `json:"ceilingPlanViewName,omitempty"`
}

// TagResult is reported in details.tags for each placed room tag.
type TagResult struct {
	RoomID ElementID `json:"roomId"`
	TagID  ElementID `json:"tagId"`
}

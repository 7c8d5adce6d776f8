package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Tool names the external entry point a request arrived through. Each
// family has one tool; creation and query have one tool per action.
type Tool string

const (
	ToolModify      Tool = "operate_element_modify"
	ToolTransform   Tool = "operate_element_transform"
	ToolVisibility  Tool = "operate_element_visibility"
	ToolVisual      Tool = "operate_element_visual"
	ToolCreateLevel Tool = "create_level"
	ToolCreateRoom  Tool = "create_room"
	ToolTagRooms    Tool = "tag_rooms"
	ToolStatus      Tool = "get_status"
	ToolFilter      Tool = "filter_elements"
)

// Tools lists every tool in registration order.
var Tools = []Tool{
	ToolModify,
	ToolTransform,
	ToolVisibility,
	ToolVisual,
	ToolCreateLevel,
	ToolCreateRoom,
	ToolTagRooms,
	ToolStatus,
	ToolFilter,
}

// ParseTool converts a tool name into a Tool.
func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// DecodeError reports a request that could not be turned into a Request.
// Attempted is the number of element ids that were readable, so callers
// can still report an accurate processedCount.
type DecodeError struct {
	Tool      Tool
	Message   string
	Attempted int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

type modifyData struct {
	ElementIDs     []ElementID `json:"elementIds"`
	ModifyAction   string      `json:"modifyAction"`
	ParameterName  string      `json:"parameterName"`
	ParameterValue any         `json:"parameterValue"`
}

type transformData struct {
	ElementIDs      []ElementID `json:"elementIds"`
	TransformAction string      `json:"transformAction"`
	TransformPayload
}

type visibilityData struct {
	ElementIDs       []ElementID `json:"elementIds"`
	VisibilityAction string      `json:"visibilityAction"`
}

type visualData struct {
	ElementIDs   []ElementID `json:"elementIds"`
	VisualAction string      `json:"visualAction"`
	VisualPayload
}

type filterData struct {
	ElementIDs []ElementID `json:"elementIds"`
	FilterPayload
}

type tagRoomsArgs struct {
	RoomIDs   []ElementID `json:"roomIds"`
	UseLeader bool        `json:"useLeader"`
	TagTypeID ElementID   `json:"tagTypeId"`
}

// DecodeRequest parses the JSON arguments of a tool call.
//
// Family tools wrap their arguments in {"data": {...}}; create_level and
// create_room wrap an item array in {"data": [...]}; tag_rooms takes its
// arguments unwrapped. filter_elements wraps its criteria in {"data": {...}}
// and get_status ignores its arguments. The action discriminator must name
// a kind of the tool's family.
func DecodeRequest(tool Tool, args []byte) (*Request, error) {
	switch tool {
	case ToolModify:
		var d modifyData
		if err := decodeData(tool, args, &d); err != nil {
			return nil, err
		}
		kind, err := parseDiscriminator(tool, "modifyAction", d.ModifyAction, FamilyModify, len(d.ElementIDs))
		if err != nil {
			return nil, err
		}
		return &Request{
			Kind:      kind,
			TargetIDs: d.ElementIDs,
			Payload:   &ModifyPayload{ParameterName: d.ParameterName, ParameterValue: d.ParameterValue},
		}, nil

	case ToolTransform:
		var d transformData
		if err := decodeData(tool, args, &d); err != nil {
			return nil, err
		}
		kind, err := parseDiscriminator(tool, "transformAction", d.TransformAction, FamilyTransform, len(d.ElementIDs))
		if err != nil {
			return nil, err
		}
		p := d.TransformPayload
		return &Request{Kind: kind, TargetIDs: d.ElementIDs, Payload: &p}, nil

	case ToolVisibility:
		var d visibilityData
		if err := decodeData(tool, args, &d); err != nil {
			return nil, err
		}
		kind, err := parseDiscriminator(tool, "visibilityAction", d.VisibilityAction, FamilyVisibility, len(d.ElementIDs))
		if err != nil {
			return nil, err
		}
		return &Request{Kind: kind, TargetIDs: d.ElementIDs, Payload: &VisibilityPayload{}}, nil

	case ToolVisual:
		var d visualData
		if err := decodeData(tool, args, &d); err != nil {
			return nil, err
		}
		kind, err := parseDiscriminator(tool, "visualAction", d.VisualAction, FamilyVisual, len(d.ElementIDs))
		if err != nil {
			return nil, err
		}
		p := d.VisualPayload
		return &Request{Kind: kind, TargetIDs: d.ElementIDs, Payload: &p}, nil

	case ToolCreateLevel:
		var levels []LevelSpec
		if err := decodeData(tool, args, &levels); err != nil {
			return nil, err
		}
		return &Request{Kind: ActionCreateLevel, Payload: &LevelsPayload{Levels: levels}}, nil

	case ToolCreateRoom:
		var rooms []RoomSpec
		if err := decodeData(tool, args, &rooms); err != nil {
			return nil, err
		}
		return &Request{Kind: ActionCreateRoom, Payload: &RoomsPayload{Rooms: rooms}}, nil

	case ToolTagRooms:
		var a tagRoomsArgs
		if len(bytes.TrimSpace(args)) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, &DecodeError{Tool: tool, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}
		return &Request{
			Kind:      ActionTagRooms,
			TargetIDs: a.RoomIDs,
			Payload:   &TagRoomsPayload{UseLeader: a.UseLeader, TagTypeID: a.TagTypeID},
		}, nil

	case ToolStatus:
		if len(bytes.TrimSpace(args)) > 0 && !json.Valid(args) {
			return nil, &DecodeError{Tool: tool, Message: "invalid arguments: malformed JSON"}
		}
		return &Request{Kind: ActionGetStatus, Payload: &StatusPayload{}}, nil

	case ToolFilter:
		var d filterData
		if err := decodeData(tool, args, &d); err != nil {
			return nil, err
		}
		p := d.FilterPayload
		return &Request{Kind: ActionFilterElements, TargetIDs: d.ElementIDs, Payload: &p}, nil
	}

	return nil, &DecodeError{Tool: tool, Message: "unknown tool"}
}

// decodeData unwraps {"data": ...} into out.
func decodeData(tool Tool, args []byte, out any) error {
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if len(bytes.TrimSpace(args)) > 0 {
		if err := json.Unmarshal(args, &env); err != nil {
			return &DecodeError{Tool: tool, Message: fmt.Sprintf("invalid arguments: %v", err)}
		}
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return &DecodeError{Tool: tool, Message: "missing 'data' in request"}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Tool: tool, Message: fmt.Sprintf("invalid data: %v", err)}
	}
	return nil
}

// parseDiscriminator resolves an action field and checks it belongs to want.
func parseDiscriminator(tool Tool, field, value string, want Family, attempted int) (ActionKind, error) {
	if value == "" {
		return "", &DecodeError{Tool: tool, Message: fmt.Sprintf("%s is required", field), Attempted: attempted}
	}
	kind, err := ParseActionKind(value)
	if err != nil || kind.Family() != want {
		return "", &DecodeError{
			Tool:      tool,
			Message:   fmt.Sprintf("%s must be one of: %s (got %q)", field, kindList(want), value),
			Attempted: attempted,
		}
	}
	return kind, nil
}

package mcpserver

import (
	"github.com/roach88/bimbridge/internal/ir"
)

func objectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func idsSchema(description string) map[string]any {
	return map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "integer"},
		"description": description,
	}
}

func numberSchema(description string) map[string]any {
	return map[string]any{"type": "number", "description": description}
}

var pointSchema = objectSchema(map[string]any{
	"x": numberSchema("mm"),
	"y": numberSchema("mm"),
	"z": numberSchema("mm"),
})

func kindEnum(f ir.Family) []string {
	kinds := ir.KindsOf(f)
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// familySchema wraps a family's fields in the {"data": {...}} envelope.
func familySchema(f ir.Family, discriminator string, fields map[string]any) map[string]any {
	props := map[string]any{
		"elementIds": idsSchema("Target element ids, processed in order"),
		discriminator: map[string]any{
			"type": "string",
			"enum": kindEnum(f),
		},
	}
	for k, v := range fields {
		props[k] = v
	}
	return objectSchema(map[string]any{
		"data": objectSchema(props, discriminator),
	}, "data")
}

func arraySchema(item map[string]any) map[string]any {
	return objectSchema(map[string]any{
		"data": map[string]any{"type": "array", "items": item, "minItems": 1},
	}, "data")
}

type toolSpec struct {
	description string
	schema      map[string]any
}

var toolSpecs = map[ir.Tool]toolSpec{
	ir.ToolModify: {
		description: "Set a parameter on, or delete, a batch of elements. Lengths are millimeters.",
		schema: familySchema(ir.FamilyModify, "modifyAction", map[string]any{
			"parameterName":  map[string]any{"type": "string"},
			"parameterValue": map[string]any{"description": "String, number or element id"},
		}),
	},
	ir.ToolTransform: {
		description: "Rotate, mirror, flip or move a batch of elements. Angles are degrees, distances millimeters.",
		schema: familySchema(ir.FamilyTransform, "transformAction", map[string]any{
			"rotationAxis":  objectSchema(map[string]any{"p0": pointSchema, "p1": pointSchema}),
			"rotationAngle": numberSchema("degrees"),
			"mirrorPlane":   objectSchema(map[string]any{"origin": pointSchema, "normal": pointSchema}, "normal"),
			"flipDirection": map[string]any{"type": "string", "enum": []string{"Hand", "Facing"}},
			"moveVector":    pointSchema,
		}),
	},
	ir.ToolVisibility: {
		description: "Hide, temporarily hide, isolate or unhide elements in the active view.",
		schema:      familySchema(ir.FamilyVisibility, "visibilityAction", nil),
	},
	ir.ToolVisual: {
		description: "Select elements, fit a section box, or apply color and transparency overrides in the active view.",
		schema: familySchema(ir.FamilyVisual, "visualAction", map[string]any{
			"color": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "integer"},
				"minItems": 3,
				"maxItems": 3,
			},
			"transparency": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		}),
	},
	ir.ToolCreateLevel: {
		description: "Create levels, optionally with floor and ceiling plan views. Elevations are millimeters.",
		schema: arraySchema(objectSchema(map[string]any{
			"name":              map[string]any{"type": "string"},
			"elevation":         numberSchema("mm"),
			"isBuildingStory":   map[string]any{"type": "boolean"},
			"createFloorPlan":   map[string]any{"type": "boolean"},
			"createCeilingPlan": map[string]any{"type": "boolean"},
		}, "elevation")),
	},
	ir.ToolCreateRoom: {
		description: "Place rooms at points inside enclosed regions. Colliding numbers are adjusted to the next free number.",
		schema: arraySchema(objectSchema(map[string]any{
			"x":            numberSchema("mm"),
			"y":            numberSchema("mm"),
			"z":            numberSchema("mm, picks the nearest level when levelId is absent"),
			"levelId":      map[string]any{"type": "integer"},
			"name":         map[string]any{"type": "string"},
			"number":       map[string]any{"type": "string"},
			"upperLimitId": map[string]any{"type": "integer"},
			"limitOffset":  numberSchema("mm"),
			"baseOffset":   numberSchema("mm"),
			"department":   map[string]any{"type": "string"},
			"comments":     map[string]any{"type": "string"},
		}, "x", "y")),
	},
	ir.ToolTagRooms: {
		description: "Tag rooms in a floor plan of their level. No roomIds tags every placed room.",
		schema: objectSchema(map[string]any{
			"roomIds":   idsSchema("Rooms to tag"),
			"useLeader": map[string]any{"type": "boolean"},
			"tagTypeId": map[string]any{"type": "integer"},
		}),
	},
	ir.ToolStatus: {
		description: "Report the document title, active view and element counts. Takes no arguments.",
		schema:      objectSchema(map[string]any{}),
	},
	ir.ToolFilter: {
		description: "Find elements by category, kind, name keyword and level. Read-only. " +
			"Returns at most maxElements (default 50); keyword-only searches are capped at 100.",
		schema: objectSchema(map[string]any{
			"data": objectSchema(map[string]any{
				"elementIds":     idsSchema("Restrict the search to these elements"),
				"filterCategory": map[string]any{"type": "string", "description": "Category name, case-insensitive"},
				"filterElementKind": map[string]any{
					"type": "string",
					"enum": []string{"instance", "wall", "floor", "type", "level", "room", "room_tag", "view"},
				},
				"filterNameKeyword":          map[string]any{"type": "string", "description": "Case-insensitive name substring"},
				"filterLevelId":              map[string]any{"type": "integer"},
				"filterVisibleInCurrentView": map[string]any{"type": "boolean"},
				"includeTypes":               map[string]any{"type": "boolean", "default": false},
				"includeInstances":           map[string]any{"type": "boolean", "default": true},
				"maxElements":                map[string]any{"type": "integer", "minimum": 1, "default": 50},
			}),
		}, "data"),
	},
}

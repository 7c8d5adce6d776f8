package ir

import (
	"fmt"
	"strings"
)

// Family groups action kinds that share a handler and a transaction policy.
type Family string

const (
	FamilyModify     Family = "modify"
	FamilyTransform  Family = "transform"
	FamilyVisibility Family = "visibility"
	FamilyVisual     Family = "visual"
	FamilyCreation   Family = "creation"
	FamilyQuery      Family = "query"
)

// Families lists every action family in dispatch order.
var Families = []Family{
	FamilyModify,
	FamilyTransform,
	FamilyVisibility,
	FamilyVisual,
	FamilyCreation,
	FamilyQuery,
}

// ActionKind identifies a single batch operation.
type ActionKind string

const (
	ActionSetParameter ActionKind = "SetParameter"
	ActionDelete       ActionKind = "Delete"

	ActionRotate ActionKind = "Rotate"
	ActionMirror ActionKind = "Mirror"
	ActionFlip   ActionKind = "Flip"
	ActionMove   ActionKind = "Move"

	ActionHide         ActionKind = "Hide"
	ActionTempHide     ActionKind = "TempHide"
	ActionIsolate      ActionKind = "Isolate"
	ActionUnhide       ActionKind = "Unhide"
	ActionResetIsolate ActionKind = "ResetIsolate"

	ActionSelect          ActionKind = "Select"
	ActionSelectionBox    ActionKind = "SelectionBox"
	ActionHighlight       ActionKind = "Highlight"
	ActionSetColor        ActionKind = "SetColor"
	ActionSetTransparency ActionKind = "SetTransparency"

	ActionCreateLevel ActionKind = "CreateLevel"
	ActionCreateRoom  ActionKind = "CreateRoom"
	ActionTagRooms    ActionKind = "TagRooms"

	ActionGetStatus      ActionKind = "GetStatus"
	ActionFilterElements ActionKind = "FilterElements"
)

// actionFamilies is the single source of truth for the kind enumeration.
// Declaration order within a family is the order used in error messages.
var actionFamilies = []struct {
	family Family
	kinds  []ActionKind
}{
	{FamilyModify, []ActionKind{ActionSetParameter, ActionDelete}},
	{FamilyTransform, []ActionKind{ActionRotate, ActionMirror, ActionFlip, ActionMove}},
	{FamilyVisibility, []ActionKind{ActionHide, ActionTempHide, ActionIsolate, ActionUnhide, ActionResetIsolate}},
	{FamilyVisual, []ActionKind{ActionSelect, ActionSelectionBox, ActionHighlight, ActionSetColor, ActionSetTransparency}},
	{FamilyCreation, []ActionKind{ActionCreateLevel, ActionCreateRoom, ActionTagRooms}},
	{FamilyQuery, []ActionKind{ActionGetStatus, ActionFilterElements}},
}

var kindToFamily = func() map[ActionKind]Family {
	m := make(map[ActionKind]Family)
	for _, f := range actionFamilies {
		for _, k := range f.kinds {
			m[k] = f.family
		}
	}
	return m
}()

// ParseActionKind converts a wire discriminator into an ActionKind.
// Matching is exact; "hide" is not "Hide".
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if _, ok := kindToFamily[k]; !ok {
		return "", fmt.Errorf("unknown action %q", s)
	}
	return k, nil
}

// Valid reports whether k is a member of the enumeration.
func (k ActionKind) Valid() bool {
	_, ok := kindToFamily[k]
	return ok
}

// Family returns the family k belongs to, or "" for an unknown kind.
func (k ActionKind) Family() Family {
	return kindToFamily[k]
}

// KindsOf returns the kinds of family f in declaration order.
func KindsOf(f Family) []ActionKind {
	for _, entry := range actionFamilies {
		if entry.family == f {
			out := make([]ActionKind, len(entry.kinds))
			copy(out, entry.kinds)
			return out
		}
	}
	return nil
}

// AllActionKinds returns every kind in declaration order.
func AllActionKinds() []ActionKind {
	var out []ActionKind
	for _, entry := range actionFamilies {
		out = append(out, entry.kinds...)
	}
	return out
}

// kindList renders the kinds of f as "A, B, C" for error messages.
func kindList(f Family) string {
	kinds := KindsOf(f)
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

// TargetsIgnored reports whether the kind acts on view or document state
// rather than on the supplied targets.
func (k ActionKind) TargetsIgnored() bool {
	return k == ActionResetIsolate || k == ActionGetStatus
}

// ReadOnly reports whether the kind only reads the document.
func (k ActionKind) ReadOnly() bool {
	return k.Family() == FamilyQuery
}

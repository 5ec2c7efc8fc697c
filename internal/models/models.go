// Package models defines the core data structures for SurveyPipe.
//
// It includes types for slot schemas, interview goals, classification results,
// and the final survey payload, which are shared across modules.
package models

import (
	"errors"
	"strings"
)

// SlotKind defines how a slot's raw answer is interpreted and validated.
type SlotKind string

const (
	// SlotKindText accepts any non-empty free text, truncated at MaxTextAnswerLength.
	SlotKindText SlotKind = "text"
	// SlotKindEmail requires a full local@domain.tld match.
	SlotKindEmail SlotKind = "email"
	// SlotKindInteger requires an optional-sign digit sequence.
	SlotKindInteger SlotKind = "integer"
	// SlotKindChoice requires one of the slot's declared options.
	SlotKindChoice SlotKind = "choice"
)

// Validation constants shared across modules.
const (
	// MaxTextAnswerLength is the cap applied to free-text answers; longer input is truncated, not rejected.
	MaxTextAnswerLength = 500
	// MaxRationaleLength bounds classification rationales.
	MaxRationaleLength = 240
	// MaxConfidence is the upper bound of the classification confidence scale.
	MaxConfidence = 100
	// LabelUnknown is the sentinel label returned when no member of a label set applies.
	LabelUnknown = "Unknown"
	// DependsValueAny is the sentinel for dependency gates that fire on any stored answer.
	DependsValueAny = "any"
	// ScaleMin and ScaleMax bound the numeric planning scale.
	ScaleMin = 0
	ScaleMax = 10
)

// Error variables for better error handling and testability
var (
	ErrEmptyGoalName     = errors.New("goal name cannot be empty")
	ErrNoSlots           = errors.New("goal must declare at least one slot")
	ErrEmptyFieldID      = errors.New("slot field_id cannot be empty")
	ErrDuplicateFieldID  = errors.New("duplicate slot field_id")
	ErrEmptyPrompt       = errors.New("slot prompt cannot be empty")
	ErrInvalidSlotKind   = errors.New("invalid slot kind")
	ErrMissingOptions    = errors.New("choice slots require at least two options")
	ErrUnexpectedOptions = errors.New("options are only valid on choice slots")
	ErrUnknownDependency = errors.New("depends_on references an unknown field_id")
	ErrForwardDependency = errors.New("depends_on must reference an earlier slot")
	ErrSelfDependency    = errors.New("slot cannot depend on itself")
	ErrInvalidPattern    = errors.New("validation_pattern does not compile")
	ErrScaleOnNonInteger = errors.New("scale is only valid on integer slots")
)

// IsValidSlotKind checks if the given slot kind is supported.
func IsValidSlotKind(k SlotKind) bool {
	switch k {
	case SlotKindText, SlotKindEmail, SlotKindInteger, SlotKindChoice:
		return true
	default:
		return false
	}
}

// Slot is one required piece of information in an interview, with a declared
// type and optional dependency on an earlier slot's answer.
type Slot struct {
	FieldID           string              `json:"field_id" yaml:"field_id"`
	Prompt            string              `json:"prompt" yaml:"prompt"`
	Kind              SlotKind            `json:"kind" yaml:"kind"`
	Options           []string            `json:"options,omitempty" yaml:"options,omitempty"`
	Keywords          map[string][]string `json:"keywords,omitempty" yaml:"keywords,omitempty"` // option name -> indicative keywords
	ValidationPattern string              `json:"validation_pattern,omitempty" yaml:"validation_pattern,omitempty"`
	Required          bool                `json:"required" yaml:"required"`
	Help              string              `json:"help,omitempty" yaml:"help,omitempty"`
	DependsOn         string              `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	DependsValue      string              `json:"depends_value,omitempty" yaml:"depends_value,omitempty"`
	// Scale routes an integer slot through the 0-10 scale classifier instead
	// of the literal validator.
	Scale bool `json:"scale,omitempty" yaml:"scale,omitempty"`
}

// LabelSet builds the closed label space for a choice slot: its options in
// declaration order, each carrying the slot's keyword list for that option.
func (s Slot) LabelSet() LabelSet {
	ls := make(LabelSet, 0, len(s.Options))
	for _, opt := range s.Options {
		ls = append(ls, Label{Name: opt, Keywords: s.Keywords[opt]})
	}
	return ls
}

// Goal is a named, ordered sequence of slots. Declaration order is the default
// ask order; availability is governed by dependency satisfaction, not position.
type Goal struct {
	Name  string `json:"name" yaml:"name"`
	Slots []Slot `json:"slots" yaml:"slots"`
}

// Slot returns the slot with the given field_id, if present.
func (g Goal) Slot(fieldID string) (Slot, bool) {
	for _, s := range g.Slots {
		if s.FieldID == fieldID {
			return s, true
		}
	}
	return Slot{}, false
}

// Label is one member of a closed label space with its indicative keywords.
type Label struct {
	Name     string   `json:"name" yaml:"name"`
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// LabelSet is an ordered closed label space. Order is significant: candidate
// sets preserve first-seen order.
type LabelSet []Label

// Names returns the label names in declaration order.
func (ls LabelSet) Names() []string {
	names := make([]string, len(ls))
	for i, l := range ls {
		names[i] = l.Name
	}
	return names
}

// Find returns the label whose name matches case-insensitively.
func (ls LabelSet) Find(name string) (Label, bool) {
	for _, l := range ls {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return Label{}, false
}

// Classification is the result of mapping free text onto a label set.
// Label is always a member of the set or LabelUnknown; when Candidates holds
// more than one entry the classification could not be narrowed and Label is
// LabelUnknown pending disambiguation.
type Classification struct {
	Label      string   `json:"label"`
	Confidence int      `json:"confidence"`
	Rationale  string   `json:"rationale,omitempty"`
	Candidates []string `json:"candidates,omitempty"`
}

// Unknown reports whether the classification failed to pick a single label.
func (c Classification) Unknown() bool {
	return c.Label == LabelUnknown || c.Label == ""
}

// Ambiguous reports whether the classification produced a candidate set that
// needs disambiguation.
func (c Classification) Ambiguous() bool {
	return len(c.Candidates) > 1
}

// Payload is the sole exported artifact of a session, produced once every
// required, dependency-satisfied slot is answered.
type Payload struct {
	Goal      string         `json:"goal"`
	Data      map[string]any `json:"data"`
	Completed bool           `json:"completed"`
}

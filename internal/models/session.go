// Package models defines session state structures for SurveyPipe interviews.
package models

import (
	"encoding/json"
	"time"
)

// DialogState represents the disambiguation state of the slot currently being
// asked. ACCEPTED is not stored: accepting a value clears the pending context.
type DialogState string

const (
	// DialogStateIdentifying means the engine is waiting for a first answer to the target slot.
	DialogStateIdentifying DialogState = "IDENTIFYING"
	// DialogStateConfirming means a single classified candidate awaits a yes/no confirmation.
	DialogStateConfirming DialogState = "CONFIRMING"
	// DialogStateClarifying means multiple candidates await an explicit selection.
	DialogStateClarifying DialogState = "CLARIFYING"
)

// InputMode tells the caller what kind of input the next turn expects.
type InputMode string

const (
	InputModeText    InputMode = "text"
	InputModeChoice  InputMode = "choice"
	InputModeConfirm InputMode = "confirm"
	// InputModeDone signals that the interview is complete and no further input is expected.
	InputModeDone InputMode = "done"
)

// PendingContext is the in-flight disambiguation state attached to a session
// between turns: which slot it targets, the dialog state, and the candidate(s).
type PendingContext struct {
	FieldID    string      `json:"field_id"`
	State      DialogState `json:"state"`
	Candidate  string      `json:"candidate,omitempty"`  // single candidate awaiting confirmation
	Candidates []string    `json:"candidates,omitempty"` // candidate set awaiting clarification
}

// Session holds one interview's mutable state. It is created empty when an
// interview begins, mutated exclusively by the dialog engine, and discarded or
// exported once complete. Completion is always recomputed from the goal
// schema, never stored.
type Session struct {
	ID        string          `json:"id"`
	GoalName  string          `json:"goal_name"`
	Answers   map[string]any  `json:"answers"`
	Pending   *PendingContext `json:"pending,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSession creates an empty session for the named goal.
func NewSession(id, goalName string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		GoalName:  goalName,
		Answers:   make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ToJSON serializes the session for storage.
func (s *Session) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes stored session state.
func (s *Session) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), s)
}

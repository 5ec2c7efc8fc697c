// Package flow provides the dialog engine that drives a slot-filling
// interview: it computes the next required slot respecting dependencies,
// routes raw input through the classifier or validator, runs the
// confirm/clarify sub-dialogs for uncertain classifications, and advances
// session state until the interview is complete.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BTreeMap/SurveyPipe/internal/classify"
	"github.com/BTreeMap/SurveyPipe/internal/models"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
	"github.com/BTreeMap/SurveyPipe/internal/validate"
)

// Option list formatting, one numbered entry per line.
const optionFormat = "\n%d. %s"

// maxExampleLabels bounds how many example labels a no-match re-prompt shows.
const maxExampleLabels = 3

// affirmations is the fixed set of confirmation answers, compared
// case-insensitively.
var affirmations = map[string]bool{
	"yes":          true,
	"y":            true,
	"correct":      true,
	"that's right": true,
	"right":        true,
}

// Engine drives one goal's interviews. It holds no per-session state; the
// caller owns the Session and passes it into every call.
type Engine struct {
	goal       models.Goal
	classifier classify.Classifier
	scale      *classify.ScaleClassifier
}

// NewEngine validates the goal schema and builds an engine for it. A goal
// that fails validation never produces an engine.
func NewEngine(goal models.Goal, classifier classify.Classifier, scale *classify.ScaleClassifier) (*Engine, error) {
	if err := schema.Validate(goal); err != nil {
		return nil, fmt.Errorf("invalid goal schema: %w", err)
	}
	if classifier == nil {
		return nil, fmt.Errorf("engine requires a classifier")
	}
	if scale == nil {
		scale = classify.NewScaleClassifier(nil)
	}
	slog.Debug("flow.NewEngine: engine created", "goal", goal.Name, "slots", len(goal.Slots))
	return &Engine{goal: goal, classifier: classifier, scale: scale}, nil
}

// EngineForGoal builds an engine for a goal registered under the given name.
func EngineForGoal(goalName string, classifier classify.Classifier, scale *classify.ScaleClassifier) (*Engine, error) {
	goal, ok := schema.Lookup(goalName)
	if !ok {
		return nil, fmt.Errorf("unknown goal %q", goalName)
	}
	return NewEngine(goal, classifier, scale)
}

// Goal returns the goal this engine drives.
func (e *Engine) Goal() models.Goal {
	return e.goal
}

// Start emits the opening prompt for a fresh session.
func (e *Engine) Start(session *models.Session) ([]string, models.InputMode) {
	missing := schema.MissingSlots(e.goal, session.Answers)
	if len(missing) == 0 {
		return e.completionMessages(session), models.InputModeDone
	}
	slot := missing[0]
	return e.promptMessages(slot), inputModeFor(slot)
}

// Advance processes one turn of raw input against the session. A pending
// disambiguation is routed first; otherwise the first missing slot is the
// target. The returned messages are the engine's outbound replies for this
// turn and the input mode tells the caller what the next turn expects.
func (e *Engine) Advance(ctx context.Context, session *models.Session, raw string) ([]string, models.InputMode, error) {
	if session.GoalName != e.goal.Name {
		return nil, "", fmt.Errorf("session %s targets goal %q, engine drives %q", session.ID, session.GoalName, e.goal.Name)
	}
	slog.Debug("flow.Engine.Advance: processing turn", "session", session.ID, "pending", session.Pending != nil)

	if session.Pending != nil {
		return e.resumePending(ctx, session, raw)
	}

	missing := schema.MissingSlots(e.goal, session.Answers)
	if len(missing) == 0 {
		// Already complete: re-emit the final payload, never advance further.
		return e.completionMessages(session), models.InputModeDone, nil
	}

	return e.handleAnswer(ctx, session, missing[0], raw)
}

// handleAnswer routes a first answer for a slot through the validator (literal
// kinds), the scale classifier (scale-flagged integers), or the classifier
// chain (choice kinds).
func (e *Engine) handleAnswer(ctx context.Context, session *models.Session, slot models.Slot, raw string) ([]string, models.InputMode, error) {
	switch {
	case slot.Kind == models.SlotKindChoice:
		return e.handleChoiceAnswer(ctx, session, slot, raw)
	case slot.Kind == models.SlotKindInteger && slot.Scale:
		return e.handleScaleAnswer(ctx, session, slot, raw)
	default:
		return e.handleLiteralAnswer(session, slot, raw)
	}
}

// handleLiteralAnswer validates text/email/integer input. Validation errors
// re-prompt with a corrective message in the same turn cadence; the interview
// never terminates because of one bad answer.
func (e *Engine) handleLiteralAnswer(session *models.Session, slot models.Slot, raw string) ([]string, models.InputMode, error) {
	value, err := validate.Validate(slot, raw)
	if err != nil {
		if validate.IsValidationError(err) {
			slog.Debug("flow.Engine: validation re-prompt", "session", session.ID, "field", slot.FieldID, "reason", err.Error())
			msgs := []string{fmt.Sprintf("Sorry, %s.", err.Error())}
			msgs = append(msgs, e.rePromptMessages(slot)...)
			return msgs, inputModeFor(slot), nil
		}
		return nil, "", fmt.Errorf("validating %q: %w", slot.FieldID, err)
	}
	msgs, mode := e.commit(session, slot, value)
	return msgs, mode, nil
}

// handleScaleAnswer maps a planning description onto the 0-10 scale.
func (e *Engine) handleScaleAnswer(ctx context.Context, session *models.Session, slot models.Slot, raw string) ([]string, models.InputMode, error) {
	value, ok := e.scale.ClassifyScale(ctx, raw)
	if !ok {
		slog.Debug("flow.Engine: scale re-prompt", "session", session.ID, "field", slot.FieldID)
		msgs := []string{"Please provide a number between 0 and 10, where 0-4 is preparation and planning, and 5-10 is execution."}
		return msgs, inputModeFor(slot), nil
	}
	msgs, mode := e.commit(session, slot, value)
	return msgs, mode, nil
}

// handleChoiceAnswer resolves a choice answer. An exact option match (case
// insensitive) commits directly; only free text that needs classification
// enters the confirm/clarify sub-dialog.
func (e *Engine) handleChoiceAnswer(ctx context.Context, session *models.Session, slot models.Slot, raw string) ([]string, models.InputMode, error) {
	if value, err := validate.Validate(slot, raw); err == nil {
		msgs, mode := e.commit(session, slot, value)
		return msgs, mode, nil
	} else if !validate.IsValidationError(err) {
		return nil, "", fmt.Errorf("validating %q: %w", slot.FieldID, err)
	}

	result, err := e.classifier.Classify(ctx, raw, slot.LabelSet())
	if err != nil {
		// Classifier tiers degrade to Unknown rather than failing the turn.
		slog.Warn("flow.Engine: classifier error, treating as Unknown", "session", session.ID, "field", slot.FieldID, "error", err)
		result = classify.Unknown("classifier unavailable")
	}

	switch {
	case result.Ambiguous():
		session.Pending = &models.PendingContext{
			FieldID:    slot.FieldID,
			State:      models.DialogStateClarifying,
			Candidates: result.Candidates,
		}
		session.UpdatedAt = time.Now()
		slog.Debug("flow.Engine: entering CLARIFYING", "session", session.ID, "field", slot.FieldID, "candidates", len(result.Candidates))
		msg := "That could mean a few things. Did you mean one of the following?" + enumerate(result.Candidates)
		return []string{msg}, models.InputModeChoice, nil

	case !result.Unknown():
		session.Pending = &models.PendingContext{
			FieldID:   slot.FieldID,
			State:     models.DialogStateConfirming,
			Candidate: result.Label,
		}
		session.UpdatedAt = time.Now()
		slog.Debug("flow.Engine: entering CONFIRMING", "session", session.ID, "field", slot.FieldID, "candidate", result.Label)
		msg := fmt.Sprintf("Thanks! So that would be %q, is that correct? (yes/no)", result.Label)
		return []string{msg}, models.InputModeConfirm, nil

	default:
		slog.Debug("flow.Engine: no candidates, re-prompting with examples", "session", session.ID, "field", slot.FieldID)
		msgs := []string{e.unknownMessage(slot)}
		msgs = append(msgs, e.rePromptMessages(slot)...)
		return msgs, models.InputModeChoice, nil
	}
}

// resumePending routes input through the disambiguation state machine for the
// slot the pending context targets. Accepting a value clears the pending
// context; anything unresolved discards it and re-asks the same slot.
func (e *Engine) resumePending(ctx context.Context, session *models.Session, raw string) ([]string, models.InputMode, error) {
	pending := session.Pending
	slot, ok := e.goal.Slot(pending.FieldID)
	if !ok {
		session.Pending = nil
		return nil, "", fmt.Errorf("pending context targets unknown slot %q", pending.FieldID)
	}

	switch pending.State {
	case models.DialogStateConfirming:
		if isAffirmative(raw) {
			value, err := canonicalOption(slot, pending.Candidate)
			if err != nil {
				session.Pending = nil
				return nil, "", err
			}
			msgs, mode := e.commit(session, slot, value)
			return msgs, mode, nil
		}
		slog.Debug("flow.Engine: confirmation declined, re-asking", "session", session.ID, "field", slot.FieldID)
		session.Pending = nil
		session.UpdatedAt = time.Now()
		msgs := []string{"No problem, let me ask again."}
		msgs = append(msgs, e.promptMessages(slot)...)
		return msgs, inputModeFor(slot), nil

	case models.DialogStateClarifying:
		if label, resolved := resolveCandidate(slot, pending.Candidates, raw); resolved {
			value, err := canonicalOption(slot, label)
			if err != nil {
				session.Pending = nil
				return nil, "", err
			}
			msgs, mode := e.commit(session, slot, value)
			return msgs, mode, nil
		}
		slog.Debug("flow.Engine: clarification unresolved, re-asking", "session", session.ID, "field", slot.FieldID)
		session.Pending = nil
		session.UpdatedAt = time.Now()
		msgs := []string{"I still wasn't sure which one you meant, so let's try again."}
		msgs = append(msgs, e.promptMessages(slot)...)
		return msgs, inputModeFor(slot), nil

	default:
		session.Pending = nil
		return nil, "", fmt.Errorf("pending context in unsupported state %q", pending.State)
	}
}

// commit stores a normalized value, clears any pending context, and either
// emits the final payload or the next slot's prompt.
func (e *Engine) commit(session *models.Session, slot models.Slot, value any) ([]string, models.InputMode) {
	session.Answers[slot.FieldID] = value
	session.Pending = nil
	session.UpdatedAt = time.Now()
	slog.Info("flow.Engine: slot committed", "session", session.ID, "field", slot.FieldID)

	missing := schema.MissingSlots(e.goal, session.Answers)
	if len(missing) == 0 {
		return e.completionMessages(session), models.InputModeDone
	}

	next := missing[0]
	return e.promptMessages(next), inputModeFor(next)
}

// completionMessages emits the closing line and the final payload.
func (e *Engine) completionMessages(session *models.Session) []string {
	payload := schema.Payload(e.goal, session.Answers)
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		slog.Error("flow.Engine: failed to marshal final payload", "session", session.ID, "error", err)
		return []string{"Thank you, that completes the interview."}
	}
	return []string{
		"Thank you, that completes the interview.",
		string(data),
	}
}

// promptMessages renders a slot's prompt, enumerating options for choice slots.
func (e *Engine) promptMessages(slot models.Slot) []string {
	msg := slot.Prompt
	if slot.Kind == models.SlotKindChoice {
		msg += enumerate(slot.Options)
	}
	return []string{msg}
}

// rePromptMessages is promptMessages plus the slot's help text, shown only
// after a failed attempt.
func (e *Engine) rePromptMessages(slot models.Slot) []string {
	msgs := e.promptMessages(slot)
	if slot.Help != "" {
		msgs = append([]string{slot.Help}, msgs...)
	}
	return msgs
}

// unknownMessage enumerates a few example labels when nothing matched.
func (e *Engine) unknownMessage(slot models.Slot) string {
	examples := slot.Options
	if len(examples) > maxExampleLabels {
		examples = examples[:maxExampleLabels]
	}
	return "I'm not sure I understood that. Here are some examples of answers I recognise:" + enumerate(examples)
}

func enumerate(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, optionFormat, i+1, item)
	}
	return b.String()
}

func inputModeFor(slot models.Slot) models.InputMode {
	if slot.Kind == models.SlotKindChoice {
		return models.InputModeChoice
	}
	return models.InputModeText
}

func isAffirmative(raw string) bool {
	return affirmations[strings.ToLower(strings.TrimSpace(raw))]
}

// canonicalOption maps a label back to the slot's originally-cased option.
func canonicalOption(slot models.Slot, label string) (string, error) {
	for _, opt := range slot.Options {
		if strings.EqualFold(opt, label) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("label %q is not an option of slot %q", label, slot.FieldID)
}

// resolveCandidate picks exactly one candidate from a clarification answer:
// an exact label name match wins; otherwise a keyword match that is unique to
// one candidate resolves. A keyword shared by several candidates does not.
func resolveCandidate(slot models.Slot, candidates []string, raw string) (string, bool) {
	input := strings.ToLower(strings.TrimSpace(raw))
	if input == "" {
		return "", false
	}

	for _, candidate := range candidates {
		if strings.EqualFold(candidate, input) {
			return candidate, true
		}
	}

	labels := slot.LabelSet()
	var matched []string
	for _, candidate := range candidates {
		label, ok := labels.Find(candidate)
		if !ok {
			continue
		}
		for _, kw := range label.Keywords {
			if kw != "" && strings.Contains(input, strings.ToLower(kw)) {
				matched = append(matched, candidate)
				break
			}
		}
	}
	if len(matched) == 1 {
		return matched[0], true
	}
	return "", false
}

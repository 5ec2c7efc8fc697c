// Package schema validates interview goals and resolves which slots still
// need answers. Validation happens once at construction time: a goal that
// fails Validate must never reach the dialog engine.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// Validate checks a goal's structural invariants. Violations are fatal
// configuration errors, not runtime conditions.
func Validate(goal models.Goal) error {
	if strings.TrimSpace(goal.Name) == "" {
		return models.ErrEmptyGoalName
	}
	if len(goal.Slots) == 0 {
		return models.ErrNoSlots
	}

	seen := make(map[string]int, len(goal.Slots))
	for i, slot := range goal.Slots {
		if strings.TrimSpace(slot.FieldID) == "" {
			return fmt.Errorf("slot %d: %w", i, models.ErrEmptyFieldID)
		}
		if _, dup := seen[slot.FieldID]; dup {
			return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrDuplicateFieldID)
		}
		if strings.TrimSpace(slot.Prompt) == "" {
			return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrEmptyPrompt)
		}
		if !models.IsValidSlotKind(slot.Kind) {
			return fmt.Errorf("slot %q has kind %q: %w", slot.FieldID, slot.Kind, models.ErrInvalidSlotKind)
		}
		if slot.Kind == models.SlotKindChoice {
			if len(slot.Options) < 2 {
				return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrMissingOptions)
			}
		} else if len(slot.Options) > 0 {
			return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrUnexpectedOptions)
		}
		if slot.Scale && slot.Kind != models.SlotKindInteger {
			return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrScaleOnNonInteger)
		}
		if slot.ValidationPattern != "" {
			if _, err := regexp.Compile(slot.ValidationPattern); err != nil {
				return fmt.Errorf("slot %q pattern %q: %w", slot.FieldID, slot.ValidationPattern, models.ErrInvalidPattern)
			}
		}
		if slot.DependsOn != "" {
			if slot.DependsOn == slot.FieldID {
				return fmt.Errorf("slot %q: %w", slot.FieldID, models.ErrSelfDependency)
			}
			// Requiring the dependency to be declared earlier makes cycles
			// impossible by construction.
			pos, ok := seen[slot.DependsOn]
			if !ok {
				return fmt.Errorf("slot %q depends on %q: %w", slot.FieldID, slot.DependsOn, models.ErrUnknownDependency)
			}
			if pos >= i {
				return fmt.Errorf("slot %q depends on %q: %w", slot.FieldID, slot.DependsOn, models.ErrForwardDependency)
			}
		}
		seen[slot.FieldID] = i
	}
	return nil
}

// MissingSlots returns every required slot not yet present in answers, in
// schema declaration order, filtered by dependency satisfaction. It is pure:
// calling it twice without mutating answers yields identical results.
func MissingSlots(goal models.Goal, answers map[string]any) []models.Slot {
	var missing []models.Slot
	for _, slot := range goal.Slots {
		if !slot.Required {
			continue
		}
		if _, answered := answers[slot.FieldID]; answered {
			continue
		}
		if dependencySatisfied(slot, answers) {
			missing = append(missing, slot)
		}
	}
	return missing
}

// Completed reports whether every required, dependency-satisfied slot has an
// answer. It is always derived, never stored.
func Completed(goal models.Goal, answers map[string]any) bool {
	return len(MissingSlots(goal, answers)) == 0
}

// Payload builds the final exported artifact for a goal and its answers.
func Payload(goal models.Goal, answers map[string]any) models.Payload {
	data := make(map[string]any, len(answers))
	for k, v := range answers {
		data[k] = v
	}
	return models.Payload{
		Goal:      goal.Name,
		Data:      data,
		Completed: Completed(goal, answers),
	}
}

// dependencySatisfied gates a slot on its depends_on answer. A slot without
// depends_on is always eligible. An empty depends_value is treated like the
// "any" sentinel: any stored answer satisfies the gate.
func dependencySatisfied(slot models.Slot, answers map[string]any) bool {
	if slot.DependsOn == "" {
		return true
	}
	stored, ok := answers[slot.DependsOn]
	if !ok {
		return false
	}
	if slot.DependsValue == "" || strings.EqualFold(slot.DependsValue, models.DependsValueAny) {
		return true
	}
	return strings.EqualFold(fmt.Sprintf("%v", stored), slot.DependsValue)
}

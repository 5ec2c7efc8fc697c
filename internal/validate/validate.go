// Package validate type-checks and normalizes raw answers against a slot's
// declared kind, options, and pattern. Validation failures are recoverable:
// the engine re-prompts with the error's corrective message and the interview
// continues.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

var (
	emailPattern   = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	integerPattern = regexp.MustCompile(`^[+-]?\d+$`)
)

// ValidationError is a recoverable input error carrying a corrective message
// suitable for showing to the participant verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Validate checks raw input against the slot's kind and returns the
// normalized value: the trimmed (and possibly truncated) string for text, the
// verbatim address for email, the parsed int for integer, and the
// canonically-cased option for choice. It is pure; the caller persists the
// value and recomputes completion.
func Validate(slot models.Slot, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)

	var value any
	switch slot.Kind {
	case models.SlotKindText:
		if trimmed == "" {
			return nil, invalid("please enter a response")
		}
		// Over-long free text is truncated, never rejected. The cap counts
		// characters, so truncation never splits a multi-byte rune.
		if utf8.RuneCountInString(trimmed) > models.MaxTextAnswerLength {
			trimmed = string([]rune(trimmed)[:models.MaxTextAnswerLength])
		}
		value = trimmed

	case models.SlotKindEmail:
		if !emailPattern.MatchString(trimmed) {
			return nil, invalid("invalid email")
		}
		value = trimmed

	case models.SlotKindInteger:
		if !integerPattern.MatchString(trimmed) {
			return nil, invalid("not a whole number")
		}
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return nil, invalid("not a whole number")
		}
		value = n

	case models.SlotKindChoice:
		if len(slot.Options) == 0 {
			return nil, fmt.Errorf("slot %q has no options to validate against", slot.FieldID)
		}
		matched := ""
		for _, opt := range slot.Options {
			if strings.EqualFold(opt, trimmed) {
				matched = opt
				break
			}
		}
		if matched == "" {
			return nil, invalid("not one of the options")
		}
		value = matched

	default:
		return nil, fmt.Errorf("slot %q has kind %q: %w", slot.FieldID, slot.Kind, models.ErrInvalidSlotKind)
	}

	if slot.ValidationPattern != "" {
		// The declared pattern must match the whole value, not a substring.
		re, err := regexp.Compile("^(?:" + slot.ValidationPattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("slot %q pattern %q: %w", slot.FieldID, slot.ValidationPattern, models.ErrInvalidPattern)
		}
		if !re.MatchString(fmt.Sprintf("%v", value)) {
			return nil, invalid("format mismatch")
		}
	}

	return value, nil
}

// IsValidationError reports whether err is a recoverable input error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

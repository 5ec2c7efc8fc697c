// Package classify: numeric-scale variant for 0-10 planning answers.
package classify

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/SurveyPipe/internal/genai"
	"github.com/BTreeMap/SurveyPipe/internal/models"
)

var integerLiteral = regexp.MustCompile(`\d+`)

const scaleSystemPrompt = `You are helping to parse a user's response about their planning status on a scale of 0-10.

- 0-4 means preparation and planning (not started, thinking about it, early planning)
- 5-10 means execution (implementing, in progress, nearly complete, finished)

Examples:
- "We're just starting to think about it" -> 2
- "We're in the planning phase" -> 3
- "We've started implementing" -> 6
- "We're almost done" -> 8
- "We haven't started" -> 0
- "We're fully implemented" -> 10

Return only a number from 0-10, or "INVALID" if you can't determine a clear number.`

// ScaleClassifier maps natural-language planning descriptions onto the 0-10
// scale, using the external classifier first and falling back to extracting
// the first embedded integer literal from the raw text.
type ScaleClassifier struct {
	client genai.ClientInterface
}

// NewScaleClassifier creates a scale classifier. A nil client disables the
// semantic tier; extraction still works.
func NewScaleClassifier(client genai.ClientInterface) *ScaleClassifier {
	return &ScaleClassifier{client: client}
}

// ClassifyScale returns the parsed scale value and whether one was found.
func (s *ScaleClassifier) ClassifyScale(ctx context.Context, text string) (int, bool) {
	if s.client != nil {
		if v, ok := s.classifySemantic(ctx, text); ok {
			return v, true
		}
	}
	return ExtractScale(text)
}

func (s *ScaleClassifier) classifySemantic(ctx context.Context, text string) (int, bool) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(scaleSystemPrompt),
		openai.UserMessage(text),
	}
	reply, err := s.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Warn("classify.ScaleClassifier: semantic tier failed, falling back to extraction", "error", err)
		return 0, false
	}
	if strings.Contains(strings.ToUpper(reply), "INVALID") {
		return 0, false
	}
	return ExtractScale(reply)
}

// ExtractScale pulls the first embedded integer literal out of the text and
// rejects it when outside [0, 10].
func ExtractScale(text string) (int, bool) {
	match := integerLiteral.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	if n < models.ScaleMin || n > models.ScaleMax {
		return 0, false
	}
	return n, true
}

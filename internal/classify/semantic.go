// Package classify: external semantic classification tier.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"

	"github.com/BTreeMap/SurveyPipe/internal/genai"
	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// SemanticClassifier delegates classification to the external GenAI service,
// requesting the strict three-field contract: label, confidence 0-100, and a
// short rationale. Out-of-set labels, malformed replies, and transport
// failures all resolve to Unknown so the chain can fall back.
type SemanticClassifier struct {
	client genai.ClientInterface
}

// NewSemanticClassifier creates a semantic classification tier.
func NewSemanticClassifier(client genai.ClientInterface) *SemanticClassifier {
	return &SemanticClassifier{client: client}
}

// classifierReply is the JSON shape the model is instructed to return.
type classifierReply struct {
	Label      string `json:"label"`
	Confidence int    `json:"confidence"`
	Rationale  string `json:"rationale"`
}

// Classify asks the external service to map text onto the label set.
func (s *SemanticClassifier) Classify(ctx context.Context, text string, labels models.LabelSet) (models.Classification, error) {
	if s.client == nil {
		return models.Classification{}, fmt.Errorf("semantic classifier has no client")
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(buildClassifierPrompt(labels)),
		openai.UserMessage(text),
	}

	reply, err := s.client.GenerateWithMessages(ctx, messages)
	if err != nil {
		return models.Classification{}, fmt.Errorf("semantic classification failed: %w", err)
	}

	parsed, err := parseClassifierReply(reply)
	if err != nil {
		slog.Warn("classify.SemanticClassifier: unparseable reply, treating as Unknown", "error", err)
		return Unknown("classifier reply was not valid JSON"), nil
	}

	if strings.EqualFold(parsed.Label, models.LabelUnknown) {
		return Unknown(parsed.Rationale), nil
	}

	// Only members of the declared set may pass through; anything else is a
	// hallucinated label and resolves to Unknown.
	label, ok := labels.Find(parsed.Label)
	if !ok {
		slog.Warn("classify.SemanticClassifier: label outside declared set", "label", parsed.Label)
		return Unknown("classifier returned an unrecognized label"), nil
	}

	confidence := parsed.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > models.MaxConfidence {
		confidence = models.MaxConfidence
	}

	slog.Debug("classify.SemanticClassifier: classified", "label", label.Name, "confidence", confidence)
	return models.Classification{
		Label:      label.Name,
		Confidence: confidence,
		Rationale:  truncateRationale(parsed.Rationale),
	}, nil
}

// buildClassifierPrompt enumerates the label space with indicative keywords.
func buildClassifierPrompt(labels models.LabelSet) string {
	var b strings.Builder
	b.WriteString("You are a classification assistant. Map the user's free-text answer to ONE label from the list. ")
	b.WriteString("If multiple could apply, pick the single best match. If none apply, use \"Unknown\". ")
	b.WriteString("Use the indicative keywords as clues, but apply common sense.\n\n")
	b.WriteString("Labels and indicative keywords:\n")
	for i, label := range labels {
		fmt.Fprintf(&b, "%d. %s", i+1, label.Name)
		if len(label.Keywords) > 0 {
			fmt.Fprintf(&b, " (keywords: %s)", strings.Join(label.Keywords, ", "))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nRespond ONLY with a JSON object of the form ")
	b.WriteString(`{"label": "<label or Unknown>", "confidence": <0-100>, "rationale": "<brief reason>"}.`)
	return b.String()
}

// parseClassifierReply tolerates markdown code fences around the JSON object.
func parseClassifierReply(reply string) (classifierReply, error) {
	cleaned := strings.TrimSpace(reply)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed classifierReply
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return classifierReply{}, fmt.Errorf("failed to parse classifier reply: %w", err)
	}
	if parsed.Label == "" {
		return classifierReply{}, fmt.Errorf("classifier reply missing label")
	}
	return parsed, nil
}

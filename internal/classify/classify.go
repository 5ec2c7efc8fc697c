// Package classify turns free text into one label from a closed enumeration
// (or Unknown), with confidence and rationale. Strategies are composable: the
// chain tries each tier in order and the first decisive result wins, so new
// fallback tiers can be added without touching engine logic.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BTreeMap/SurveyPipe/internal/genai"
	"github.com/BTreeMap/SurveyPipe/internal/models"
)

// Classifier maps free text onto a label set.
type Classifier interface {
	Classify(ctx context.Context, text string, labels models.LabelSet) (models.Classification, error)
}

// Confidence levels reported by the deterministic keyword tier.
const (
	exactMatchConfidence   = 100
	keywordMatchConfidence = 80
)

// Unknown builds the sentinel classification.
func Unknown(rationale string) models.Classification {
	return models.Classification{Label: models.LabelUnknown, Rationale: truncateRationale(rationale)}
}

func truncateRationale(r string) string {
	if len(r) > models.MaxRationaleLength {
		return r[:models.MaxRationaleLength]
	}
	return r
}

// KeywordClassifier is the deterministic fallback tier: exact label match
// first, then a substring keyword scan per label.
type KeywordClassifier struct{}

// Classify returns the single matching label, a candidate set in first-seen
// order when several labels' keywords occur, or Unknown.
func (KeywordClassifier) Classify(ctx context.Context, text string, labels models.LabelSet) (models.Classification, error) {
	input := strings.ToLower(strings.TrimSpace(text))
	if input == "" {
		return Unknown("empty input"), nil
	}

	// Exact label name match wins outright.
	for _, label := range labels {
		if strings.ToLower(label.Name) == input {
			return models.Classification{
				Label:      label.Name,
				Confidence: exactMatchConfidence,
				Rationale:  "exact label match",
			}, nil
		}
	}

	// Keyword scan: a label is a candidate if any of its keywords occurs as a
	// substring of the input. First-seen order, deduplicated by construction
	// (one pass over an ordered set).
	var candidates []string
	for _, label := range labels {
		for _, kw := range label.Keywords {
			if kw != "" && strings.Contains(input, strings.ToLower(kw)) {
				candidates = append(candidates, label.Name)
				break
			}
		}
	}

	switch len(candidates) {
	case 0:
		return Unknown("no keyword matched"), nil
	case 1:
		return models.Classification{
			Label:      candidates[0],
			Confidence: keywordMatchConfidence,
			Rationale:  "matched indicative keywords",
		}, nil
	default:
		result := Unknown("multiple labels matched")
		result.Candidates = candidates
		return result, nil
	}
}

// Mode selects which tiers a chain is built from.
type Mode string

const (
	// ModeAuto tries the external semantic classifier first and falls back to keywords.
	ModeAuto Mode = "auto"
	// ModeKeyword uses the deterministic keyword tier only.
	ModeKeyword Mode = "keyword"
	// ModeStrict requires the external semantic classifier and disables the fallback.
	ModeStrict Mode = "strict"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto, "":
		return ModeAuto, nil
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown classifier mode %q", s)
	}
}

// Chain is an ordered list of classifier attempts; the first result that is
// a single label or a candidate set wins.
type Chain struct {
	tiers []Classifier
}

// NewChain assembles the classifier chain for a mode. Strict mode without a
// GenAI client is a configuration error surfaced at startup, not a silent
// per-turn degrade. Auto mode without a client degrades to keyword-only once,
// with a log line for the operator.
func NewChain(mode Mode, client genai.ClientInterface) (*Chain, error) {
	switch mode {
	case ModeStrict:
		if client == nil {
			return nil, fmt.Errorf("classifier mode %q requires a GenAI client", mode)
		}
		return &Chain{tiers: []Classifier{NewSemanticClassifier(client)}}, nil
	case ModeKeyword:
		return &Chain{tiers: []Classifier{KeywordClassifier{}}}, nil
	case ModeAuto:
		if client == nil {
			slog.Info("classify.NewChain: no GenAI client configured, using keyword tier only")
			return &Chain{tiers: []Classifier{KeywordClassifier{}}}, nil
		}
		return &Chain{tiers: []Classifier{NewSemanticClassifier(client), KeywordClassifier{}}}, nil
	default:
		return nil, fmt.Errorf("unknown classifier mode %q", mode)
	}
}

// Classify runs the tiers in order. A tier that errors (external service
// unreachable) counts as Unknown for that tier and execution falls through;
// the chain itself never fails a turn.
func (c *Chain) Classify(ctx context.Context, text string, labels models.LabelSet) (models.Classification, error) {
	last := Unknown("no classifier produced a result")
	for i, tier := range c.tiers {
		result, err := tier.Classify(ctx, text, labels)
		if err != nil {
			slog.Warn("classify.Chain: tier failed, falling through", "tier", i, "error", err)
			continue
		}
		if !result.Unknown() || result.Ambiguous() {
			return result, nil
		}
		last = result
	}
	return last, nil
}

package classify

import (
	"context"
	"testing"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

func TestSemanticClassifierParsesReply(t *testing.T) {
	client := &mockGenAI{reply: `{"label": "Healthcare", "confidence": 87, "rationale": "mentions hospitals"}`}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "I run a hospital ward", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if got.Label != "Healthcare" || got.Confidence != 87 {
		t.Errorf("Classify() = %+v, want Healthcare at 87", got)
	}
	if got.Rationale != "mentions hospitals" {
		t.Errorf("Classify() rationale = %q", got.Rationale)
	}
}

func TestSemanticClassifierStripsCodeFences(t *testing.T) {
	client := &mockGenAI{reply: "```json\n{\"label\": \"Healthcare\", \"confidence\": 90, \"rationale\": \"ok\"}\n```"}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "hospital", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if got.Label != "Healthcare" {
		t.Errorf("Classify() label = %q, want Healthcare from fenced JSON", got.Label)
	}
}

func TestSemanticClassifierNormalizesLabelCase(t *testing.T) {
	client := &mockGenAI{reply: `{"label": "healthcare", "confidence": 75, "rationale": "r"}`}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "hospital", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if got.Label != "Healthcare" {
		t.Errorf("Classify() label = %q, want canonical casing", got.Label)
	}
}

func TestSemanticClassifierRejectsOutOfSetLabel(t *testing.T) {
	client := &mockGenAI{reply: `{"label": "Aerospace", "confidence": 99, "rationale": "r"}`}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "planes", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if !got.Unknown() {
		t.Errorf("Classify() accepted out-of-set label: %+v", got)
	}
}

func TestSemanticClassifierMalformedReply(t *testing.T) {
	client := &mockGenAI{reply: "I think it is probably Healthcare."}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "hospital", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() should resolve malformed replies to Unknown, got error: %v", err)
	}
	if !got.Unknown() {
		t.Errorf("Classify() on malformed reply = %+v, want Unknown", got)
	}
}

func TestSemanticClassifierClampsConfidence(t *testing.T) {
	tests := []struct {
		reply string
		want  int
	}{
		{`{"label": "Healthcare", "confidence": 150, "rationale": "r"}`, models.MaxConfidence},
		{`{"label": "Healthcare", "confidence": -5, "rationale": "r"}`, 0},
	}
	for _, tc := range tests {
		client := &mockGenAI{reply: tc.reply}
		got, err := NewSemanticClassifier(client).Classify(context.Background(), "hospital", sectorLabels)
		if err != nil {
			t.Fatalf("Classify() returned error: %v", err)
		}
		if got.Confidence != tc.want {
			t.Errorf("Classify() confidence = %d, want %d", got.Confidence, tc.want)
		}
	}
}

func TestSemanticClassifierUnknownPassthrough(t *testing.T) {
	client := &mockGenAI{reply: `{"label": "Unknown", "confidence": 0, "rationale": "nothing matched"}`}
	got, err := NewSemanticClassifier(client).Classify(context.Background(), "gibberish", sectorLabels)
	if err != nil {
		t.Fatalf("Classify() returned error: %v", err)
	}
	if !got.Unknown() {
		t.Errorf("Classify() = %+v, want Unknown passthrough", got)
	}
}

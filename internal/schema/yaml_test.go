package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BTreeMap/SurveyPipe/internal/models"
)

const goalsYAML = `
goals:
  - name: Customer Feedback
    slots:
      - field_id: email
        prompt: What is your email address?
        kind: email
      - field_id: rating
        prompt: How would you rate us?
        kind: choice
        options: [Good, Bad]
        keywords:
          Good: [great, excellent]
          Bad: [poor, terrible]
      - field_id: bad_reason
        prompt: What went wrong?
        depends_on: rating
        depends_value: Bad
      - field_id: newsletter
        prompt: Want our newsletter?
        kind: choice
        options: ["Yes", "No"]
        required: false
`

func writeGoalsFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goals.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write goals file: %v", err)
	}
	return path
}

func TestLoadGoals(t *testing.T) {
	goals, err := LoadGoals(writeGoalsFile(t, goalsYAML))
	if err != nil {
		t.Fatalf("LoadGoals() returned error: %v", err)
	}
	if len(goals) != 1 {
		t.Fatalf("LoadGoals() returned %d goals, want 1", len(goals))
	}
	goal := goals[0]
	if goal.Name != "Customer Feedback" {
		t.Errorf("goal name = %q, want %q", goal.Name, "Customer Feedback")
	}
	if len(goal.Slots) != 4 {
		t.Fatalf("goal has %d slots, want 4", len(goal.Slots))
	}

	// Omitted kind defaults to text, omitted required defaults to true.
	reason, _ := goal.Slot("bad_reason")
	if reason.Kind != models.SlotKindText {
		t.Errorf("bad_reason kind = %q, want text default", reason.Kind)
	}
	if !reason.Required {
		t.Errorf("bad_reason should default to required")
	}

	newsletter, _ := goal.Slot("newsletter")
	if newsletter.Required {
		t.Errorf("newsletter should honor required: false")
	}

	rating, _ := goal.Slot("rating")
	if len(rating.Keywords["Good"]) != 2 {
		t.Errorf("rating keywords not loaded: %v", rating.Keywords)
	}
}

func TestLoadGoalsRejectsInvalidSchema(t *testing.T) {
	invalid := `
goals:
  - name: Broken
    slots:
      - field_id: only
        prompt: Pick one.
        kind: choice
        options: [Sole]
`
	if _, err := LoadGoals(writeGoalsFile(t, invalid)); err == nil {
		t.Fatalf("LoadGoals() accepted a goal with a single-option choice slot")
	}
}

func TestLoadGoalsRejectsMalformedYAML(t *testing.T) {
	if _, err := LoadGoals(writeGoalsFile(t, "goals: [")); err == nil {
		t.Fatalf("LoadGoals() accepted malformed YAML")
	}
}

func TestLoadGoalsMissingFile(t *testing.T) {
	if _, err := LoadGoals(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("LoadGoals() succeeded on a missing file")
	}
}

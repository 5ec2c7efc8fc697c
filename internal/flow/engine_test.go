package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/SurveyPipe/internal/classify"
	"github.com/BTreeMap/SurveyPipe/internal/models"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
)

func engineTestGoal() models.Goal {
	return models.Goal{
		Name: "Engine Test Interview",
		Slots: []models.Slot{
			{FieldID: "participant_name", Prompt: "What is your name?", Kind: models.SlotKindText, Required: true},
			{
				FieldID: "sector",
				Prompt:  "Which sector do you work in?",
				Kind:    models.SlotKindChoice,
				Options: []string{"Retail & E-commerce", "Travel & Hospitality", "Healthcare"},
				Keywords: map[string][]string{
					"Retail & E-commerce":  {"retail", "bookings", "shopping"},
					"Travel & Hospitality": {"airline", "hotels", "bookings"},
					"Healthcare":           {"medical", "hospital", "patients"},
				},
				Required: true,
				Help:     "For example: Healthcare (hospitals), Retail & E-commerce (shopping).",
			},
			{FieldID: "planning_scale", Prompt: "Where are you on a scale of 0-10?", Kind: models.SlotKindInteger, Scale: true, Required: true},
			{
				FieldID:      "details",
				Prompt:       "Tell us more about your plans.",
				Kind:         models.SlotKindText,
				Required:     true,
				DependsOn:    "sector",
				DependsValue: models.DependsValueAny,
			},
		},
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	chain, err := classify.NewChain(classify.ModeKeyword, nil)
	if err != nil {
		t.Fatalf("NewChain() returned error: %v", err)
	}
	engine, err := NewEngine(engineTestGoal(), chain, nil)
	if err != nil {
		t.Fatalf("NewEngine() returned error: %v", err)
	}
	return engine
}

func advance(t *testing.T, engine *Engine, session *models.Session, raw string) ([]string, models.InputMode) {
	t.Helper()
	msgs, mode, err := engine.Advance(context.Background(), session, raw)
	if err != nil {
		t.Fatalf("Advance(%q) returned error: %v", raw, err)
	}
	return msgs, mode
}

func TestNewEngineRejectsInvalidGoal(t *testing.T) {
	chain, _ := classify.NewChain(classify.ModeKeyword, nil)
	goal := engineTestGoal()
	goal.Slots[0].Prompt = ""
	if _, err := NewEngine(goal, chain, nil); err == nil {
		t.Fatalf("NewEngine() accepted a goal with an empty prompt")
	}
}

func TestEngineStartPromptsFirstSlot(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)

	msgs, mode := engine.Start(session)
	if mode != models.InputModeText {
		t.Errorf("Start() mode = %q, want text", mode)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "What is your name?") {
		t.Errorf("Start() messages = %v, want the first slot's prompt", msgs)
	}
}

func TestEngineFullInterview(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)

	// Name commits directly and the sector prompt enumerates options.
	msgs, mode := advance(t, engine, session, "Ada Lovelace")
	if session.Answers["participant_name"] != "Ada Lovelace" {
		t.Fatalf("name not committed: %v", session.Answers)
	}
	if mode != models.InputModeChoice {
		t.Fatalf("mode after name = %q, want choice", mode)
	}
	if !strings.Contains(msgs[0], "1. Retail & E-commerce") {
		t.Errorf("sector prompt should enumerate options, got %q", msgs[0])
	}

	// A unique keyword yields a single candidate awaiting confirmation.
	msgs, mode = advance(t, engine, session, "I work in a hospital")
	if mode != models.InputModeConfirm {
		t.Fatalf("mode after sector answer = %q, want confirm", mode)
	}
	if session.Pending == nil || session.Pending.State != models.DialogStateConfirming {
		t.Fatalf("pending = %+v, want CONFIRMING", session.Pending)
	}
	if session.Pending.Candidate != "Healthcare" {
		t.Errorf("pending candidate = %q, want Healthcare", session.Pending.Candidate)
	}
	if !strings.Contains(msgs[0], "Healthcare") {
		t.Errorf("confirmation message should name the candidate, got %q", msgs[0])
	}

	// Affirmation commits the canonical option and clears the pending context.
	_, mode = advance(t, engine, session, "yes")
	if session.Answers["sector"] != "Healthcare" {
		t.Fatalf("sector not committed: %v", session.Answers)
	}
	if session.Pending != nil {
		t.Fatalf("pending context not cleared after confirmation")
	}
	if mode != models.InputModeText {
		t.Errorf("mode after sector commit = %q, want text for the scale slot", mode)
	}

	// The scale slot extracts an embedded integer.
	advance(t, engine, session, "I would say about a 7")
	if session.Answers["planning_scale"] != 7 {
		t.Fatalf("planning_scale = %v, want 7", session.Answers["planning_scale"])
	}

	// The dependent slot became eligible once sector was answered.
	msgs, mode = advance(t, engine, session, "We are rolling out a new triage system")
	if mode != models.InputModeDone {
		t.Fatalf("mode after final answer = %q, want done", mode)
	}
	joined := strings.Join(msgs, "\n")
	if !strings.Contains(joined, engine.Goal().Name) {
		t.Errorf("final messages should include the payload, got %v", msgs)
	}

	// Advancing a completed session re-emits the payload without mutating it.
	before := len(session.Answers)
	_, mode = advance(t, engine, session, "anything")
	if mode != models.InputModeDone || len(session.Answers) != before {
		t.Errorf("completed session advanced: mode=%q answers=%d", mode, len(session.Answers))
	}
}

func TestEngineCCASurveyRoundTrip(t *testing.T) {
	chain, err := classify.NewChain(classify.ModeKeyword, nil)
	if err != nil {
		t.Fatalf("NewChain() returned error: %v", err)
	}
	engine, err := EngineForGoal(schema.GoalCCACouncilSurvey, chain, nil)
	if err != nil {
		t.Fatalf("EngineForGoal() returned error: %v", err)
	}
	session := models.NewSession("cca-1", schema.GoalCCACouncilSurvey)

	want := map[string]any{
		"biggest_challenge":        "Return to customer care",
		"challenge_reason":         "Financial impact",
		"organisational_readiness": "Not at all",
		"most_challenging_persona": "Future leader",
		"persona_challenge_factor": "Skills and capability gaps",
		"biggest_positive_impact":  "More training budget",
	}

	// Exact option names commit directly, no confirmation turns in between.
	var mode models.InputMode
	for _, answer := range []string{
		"Return to customer care",
		"Financial impact",
		"Not at all",
		"Future leader",
		"Skills and capability gaps",
		"More training budget",
	} {
		_, mode = advance(t, engine, session, answer)
		if session.Pending != nil {
			t.Fatalf("answer %q left a pending context: %+v", answer, session.Pending)
		}
	}

	if mode != models.InputModeDone {
		t.Fatalf("mode after final answer = %q, want done", mode)
	}
	if len(session.Answers) != len(want) {
		t.Fatalf("answers = %v, want exactly %d entries", session.Answers, len(want))
	}
	for field, value := range want {
		if session.Answers[field] != value {
			t.Errorf("answers[%q] = %v, want %v", field, session.Answers[field], value)
		}
	}

	payload := schema.Payload(engine.Goal(), session.Answers)
	if !payload.Completed {
		t.Errorf("payload.Completed = false, want true")
	}
}

func TestEngineExactChoiceCommitsDirectly(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")

	// A case-variant exact option name commits in one turn with the
	// canonical casing; no confirmation round.
	_, mode := advance(t, engine, session, "healthcare")
	if session.Pending != nil {
		t.Fatalf("exact option match created a pending context: %+v", session.Pending)
	}
	if session.Answers["sector"] != "Healthcare" {
		t.Fatalf("answers = %v, want sector committed with canonical casing", session.Answers)
	}
	if mode != models.InputModeText {
		t.Errorf("mode after exact commit = %q, want text for the next slot", mode)
	}
}

func TestEngineConfirmationDeclinedReAsks(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")
	advance(t, engine, session, "medical work")

	msgs, mode := advance(t, engine, session, "no")
	if session.Pending != nil {
		t.Fatalf("pending context should be discarded on decline")
	}
	if _, answered := session.Answers["sector"]; answered {
		t.Fatalf("declined candidate was committed")
	}
	if mode != models.InputModeChoice {
		t.Errorf("mode after decline = %q, want choice", mode)
	}
	if !strings.Contains(strings.Join(msgs, "\n"), "Which sector do you work in?") {
		t.Errorf("decline should re-ask the slot, got %v", msgs)
	}
}

func TestEngineClarification(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")

	// "bookings" belongs to two labels: the engine must ask, not guess.
	msgs, mode := advance(t, engine, session, "I handle bookings")
	if session.Pending == nil || session.Pending.State != models.DialogStateClarifying {
		t.Fatalf("pending = %+v, want CLARIFYING", session.Pending)
	}
	if len(session.Pending.Candidates) != 2 {
		t.Fatalf("candidates = %v, want two", session.Pending.Candidates)
	}
	if mode != models.InputModeChoice {
		t.Errorf("mode in clarification = %q, want choice", mode)
	}
	if !strings.Contains(msgs[0], "Travel & Hospitality") {
		t.Errorf("clarification should enumerate candidates, got %q", msgs[0])
	}

	// A keyword unique to one candidate resolves it.
	advance(t, engine, session, "mostly airline work")
	if session.Answers["sector"] != "Travel & Hospitality" {
		t.Fatalf("clarification did not resolve: %v", session.Answers)
	}
	if session.Pending != nil {
		t.Errorf("pending context not cleared after clarification")
	}
}

func TestEngineClarificationByExactName(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")
	advance(t, engine, session, "I handle bookings")

	advance(t, engine, session, "retail & e-commerce")
	if session.Answers["sector"] != "Retail & E-commerce" {
		t.Fatalf("exact name pick did not resolve: %v", session.Answers)
	}
}

func TestEngineClarificationUnresolvedReAsks(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")
	advance(t, engine, session, "I handle bookings")

	// "bookings" is shared by both candidates, so it cannot resolve.
	msgs, _ := advance(t, engine, session, "bookings")
	if session.Pending != nil {
		t.Fatalf("unresolved clarification should discard the pending context")
	}
	if _, answered := session.Answers["sector"]; answered {
		t.Fatalf("unresolved clarification committed an answer")
	}
	if !strings.Contains(strings.Join(msgs, "\n"), "Which sector do you work in?") {
		t.Errorf("unresolved clarification should re-ask, got %v", msgs)
	}
}

func TestEngineUnknownAnswerShowsExamples(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")

	msgs, mode := advance(t, engine, session, "xyzzy")
	if session.Pending != nil {
		t.Fatalf("unknown answer should not create a pending context")
	}
	if mode != models.InputModeChoice {
		t.Errorf("mode after unknown answer = %q, want choice", mode)
	}
	joined := strings.Join(msgs, "\n")
	if !strings.Contains(joined, "examples") || !strings.Contains(joined, "Which sector do you work in?") {
		t.Errorf("unknown answer should show examples and re-ask, got %v", msgs)
	}
}

func TestEngineValidationRePrompt(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)

	msgs, mode := advance(t, engine, session, "   ")
	if _, answered := session.Answers["participant_name"]; answered {
		t.Fatalf("blank answer was committed")
	}
	if mode != models.InputModeText {
		t.Errorf("mode after validation failure = %q, want text", mode)
	}
	if !strings.Contains(strings.Join(msgs, "\n"), "What is your name?") {
		t.Errorf("validation failure should re-ask, got %v", msgs)
	}
}

func TestEngineScaleRePrompt(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", engine.Goal().Name)
	advance(t, engine, session, "Ada")
	advance(t, engine, session, "hospital")
	advance(t, engine, session, "yes")

	msgs, mode := advance(t, engine, session, "we have not started at all")
	if _, answered := session.Answers["planning_scale"]; answered {
		t.Fatalf("unparseable scale answer was committed")
	}
	if mode != models.InputModeText {
		t.Errorf("mode after scale failure = %q, want text", mode)
	}
	if !strings.Contains(msgs[0], "between 0 and 10") {
		t.Errorf("scale failure should explain the range, got %q", msgs[0])
	}
}

func TestEngineRejectsForeignSession(t *testing.T) {
	engine := newTestEngine(t)
	session := models.NewSession("s1", "Some Other Goal")
	if _, _, err := engine.Advance(context.Background(), session, "hello"); err == nil {
		t.Fatalf("Advance() accepted a session for a different goal")
	}
}

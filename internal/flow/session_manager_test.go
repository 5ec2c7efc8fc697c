package flow

import (
	"context"
	"testing"

	"github.com/BTreeMap/SurveyPipe/internal/models"
	"github.com/BTreeMap/SurveyPipe/internal/schema"
	"github.com/BTreeMap/SurveyPipe/internal/store"
)

func TestSessionManagerLifecycle(t *testing.T) {
	ctx := context.Background()
	manager := NewSessionManager(store.NewInMemoryStore())

	session, err := manager.CreateSession(ctx, schema.GoalCCACouncilSurvey)
	if err != nil {
		t.Fatalf("CreateSession() returned error: %v", err)
	}
	if session.ID == "" {
		t.Fatalf("CreateSession() produced an empty session id")
	}

	loaded, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() returned error: %v", err)
	}
	if loaded == nil || loaded.GoalName != schema.GoalCCACouncilSurvey {
		t.Fatalf("GetSession() = %+v, want persisted session", loaded)
	}

	loaded.Answers["participant_name"] = "Ada"
	loaded.Pending = &models.PendingContext{FieldID: "sector", State: models.DialogStateConfirming, Candidate: "Healthcare"}
	if err := manager.SaveSession(ctx, loaded); err != nil {
		t.Fatalf("SaveSession() returned error: %v", err)
	}

	reloaded, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() after save returned error: %v", err)
	}
	if reloaded.Answers["participant_name"] != "Ada" {
		t.Errorf("answers did not round-trip: %v", reloaded.Answers)
	}
	if reloaded.Pending == nil || reloaded.Pending.Candidate != "Healthcare" {
		t.Errorf("pending context did not round-trip: %+v", reloaded.Pending)
	}

	sessions, err := manager.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() returned error: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("ListSessions() returned %d sessions, want 1", len(sessions))
	}

	if err := manager.DeleteSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteSession() returned error: %v", err)
	}
	gone, err := manager.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession() after delete returned error: %v", err)
	}
	if gone != nil {
		t.Errorf("GetSession() after delete = %+v, want nil", gone)
	}
}

func TestSessionManagerRejectsUnknownGoal(t *testing.T) {
	manager := NewSessionManager(store.NewInMemoryStore())
	if _, err := manager.CreateSession(context.Background(), "No Such Goal"); err == nil {
		t.Fatalf("CreateSession() accepted an unregistered goal")
	}
}

package classify

import (
	"context"
	"errors"
	"testing"
)

func TestExtractScale(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{"7", 7, true},
		{"0", 0, true},
		{"10", 10, true},
		{"I would say about a 6 overall", 6, true},
		{"11", 0, false},
		{"42 out of 100", 0, false},
		{"no number here", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := ExtractScale(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Errorf("ExtractScale(%q) = (%d, %v), want (%d, %v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestClassifyScaleSemanticFirst(t *testing.T) {
	client := &mockGenAI{reply: "3"}
	got, ok := NewScaleClassifier(client).ClassifyScale(context.Background(), "we are still planning")
	if !ok || got != 3 {
		t.Errorf("ClassifyScale() = (%d, %v), want (3, true)", got, ok)
	}
	if client.calls != 1 {
		t.Errorf("semantic tier called %d times, want 1", client.calls)
	}
}

func TestClassifyScaleFallsBackOnInvalidReply(t *testing.T) {
	client := &mockGenAI{reply: "INVALID"}
	got, ok := NewScaleClassifier(client).ClassifyScale(context.Background(), "roughly an 8 I think")
	if !ok || got != 8 {
		t.Errorf("ClassifyScale() = (%d, %v), want extraction fallback (8, true)", got, ok)
	}
}

func TestClassifyScaleFallsBackOnClientError(t *testing.T) {
	client := &mockGenAI{err: errors.New("service unreachable")}
	got, ok := NewScaleClassifier(client).ClassifyScale(context.Background(), "4")
	if !ok || got != 4 {
		t.Errorf("ClassifyScale() = (%d, %v), want extraction fallback (4, true)", got, ok)
	}
}

func TestClassifyScaleWithoutClient(t *testing.T) {
	sc := NewScaleClassifier(nil)
	if got, ok := sc.ClassifyScale(context.Background(), "about a 9"); !ok || got != 9 {
		t.Errorf("ClassifyScale() without client = (%d, %v), want (9, true)", got, ok)
	}
	if _, ok := sc.ClassifyScale(context.Background(), "we have not started"); ok {
		t.Errorf("ClassifyScale() without client should fail on text with no number")
	}
}

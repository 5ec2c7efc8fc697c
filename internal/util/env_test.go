package util

import "testing"

func TestGetEnv(t *testing.T) {
	t.Setenv("SURVEYPIPE_TEST_VAR", "configured")
	if got := GetEnv("SURVEYPIPE_TEST_VAR", "fallback"); got != "configured" {
		t.Errorf("GetEnv() = %q, want configured", got)
	}
	if got := GetEnv("SURVEYPIPE_TEST_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnv() = %q, want fallback", got)
	}
}

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"false", true, false},
		{"0", true, false},
		{"No", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
		{"", true, true},
	}
	for _, tc := range tests {
		t.Setenv("SURVEYPIPE_TEST_BOOL", tc.value)
		if got := ParseBoolEnv("SURVEYPIPE_TEST_BOOL", tc.def); got != tc.want {
			t.Errorf("ParseBoolEnv(%q, %v) = %v, want %v", tc.value, tc.def, got, tc.want)
		}
	}
}

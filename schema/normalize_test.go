package schema

import "testing"

func TestNormalizeActionKind(t *testing.T) {
	cases := []struct {
		in    string
		want  ActionKind
		valid bool
	}{
		{"api", ActionKindAPI, true},
		{" Command ", ActionKindCommand, true},
		{"CODE", ActionKindCode, true},
		{"plan", ActionKindPlan, true},
		{"", "", false},
		{"shell", "", false},
	}
	for _, tc := range cases {
		got, err := NormalizeActionKind(tc.in)
		if tc.valid {
			if err != nil {
				t.Fatalf("%q: unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("%q: got %q want %q", tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestNormalizeSafetyTier(t *testing.T) {
	if got, err := NormalizeSafetyTier(" High "); err != nil || got != SafetyHigh {
		t.Fatalf("got %q err %v", got, err)
	}
	if _, err := NormalizeSafetyTier("extreme"); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestValidateUserID(t *testing.T) {
	cases := []struct {
		name  string
		user  UserID
		valid bool
	}{
		{"simple", "alice", true},
		{"with-dots", "alice.dev", true},
		{"with-dash", "alice-dev", true},
		{"empty", "", false},
		{"uppercase", "Alice", false},
		{"space", "alice dev", false},
		{"trailing-space", "alice ", false},
		{"symbol", "alice@", false},
	}
	for _, tc := range cases {
		err := ValidateUserID(tc.user)
		if tc.valid && err != nil {
			t.Fatalf("case %q expected valid, got error: %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Fatalf("case %q expected error, got nil", tc.name)
		}
	}
}

package engine

import "testing"

func TestScanMarkers(t *testing.T) {
	cases := []struct {
		name     string
		reply    string
		expected Outcome
	}{
		{
			name:     "grant marker",
			reply:    "Everything checks out. ACCESS GRANTED",
			expected: OutcomeGranted,
		},
		{
			name:     "deny marker",
			reply:    "I could not confirm who you are. ACCESS DENIED",
			expected: OutcomeDenied,
		},
		{
			name:     "case insensitive",
			reply:    "access Granted, welcome back",
			expected: OutcomeGranted,
		},
		{
			name:     "no marker means pending",
			reply:    "Tell me more about what you worked on yesterday.",
			expected: OutcomePending,
		},
		{
			name:     "denial beats grant when both appear",
			reply:    "Earlier I would have said access granted, but now: ACCESS DENIED",
			expected: OutcomeDenied,
		},
		{
			name:     "identity not confirmed does not trip the confirmed marker",
			reply:    "Identity not confirmed, please contact your branch.",
			expected: OutcomeDenied,
		},
		{
			name:     "repeated grant markers count once",
			reply:    "Verified and authenticated. ACCESS GRANTED",
			expected: OutcomeGranted,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScanMarkers(tc.reply); got != tc.expected {
				t.Fatalf("expected outcome %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDeriveOutcomePrefersVerdict(t *testing.T) {
	// The reply says granted, but the verdict says the conversation is still
	// going. The verdict wins.
	result := &TurnResult{
		Reply:   "Sounds good so far. ACCESS GRANTED",
		Verdict: &Verdict{Progress: ProgressInProgress, Access: AccessGranted},
	}
	if got := DeriveOutcome(result); got != OutcomePending {
		t.Fatalf("expected pending while in progress, got %q", got)
	}
}

func TestDeriveOutcomeFromVerdict(t *testing.T) {
	cases := []struct {
		name     string
		verdict  Verdict
		expected Outcome
	}{
		{"completed granted", Verdict{Progress: ProgressCompleted, Access: AccessGranted}, OutcomeGranted},
		{"completed denied", Verdict{Progress: ProgressCompleted, Access: AccessDenied}, OutcomeDenied},
		{"completed partial", Verdict{Progress: ProgressCompleted, Access: AccessPartial}, OutcomePartial},
		{"completed unknown access fails closed", Verdict{Progress: ProgressCompleted, Access: Access("MAYBE")}, OutcomeDenied},
		{"in progress", Verdict{Progress: ProgressInProgress, Access: AccessGranted}, OutcomePending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verdict := tc.verdict
			got := DeriveOutcome(&TurnResult{Reply: "reply", Verdict: &verdict})
			if got != tc.expected {
				t.Fatalf("expected outcome %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDeriveOutcomeFallsBackToMarkers(t *testing.T) {
	result := &TurnResult{Reply: "All good. ACCESS GRANTED"}
	if got := DeriveOutcome(result); got != OutcomeGranted {
		t.Fatalf("expected marker fallback to grant, got %q", got)
	}
}

func TestOutcomeTerminal(t *testing.T) {
	if !OutcomeGranted.Terminal() || !OutcomeDenied.Terminal() || !OutcomePartial.Terminal() {
		t.Fatal("expected granted, denied and partial to be terminal")
	}
	if OutcomePending.Terminal() {
		t.Fatal("expected pending to be non-terminal")
	}
}

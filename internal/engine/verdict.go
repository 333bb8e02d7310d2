package engine

import "strings"

// Outcome is the controller-facing decision derived from a turn.
type Outcome string

const (
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
	OutcomePartial Outcome = "partial"
	OutcomePending Outcome = "pending"
)

// Terminal reports whether the outcome ends the verification protocol with a
// decision. Denied and partial outcomes are terminal signals but leave the
// pending session open for retry; only granted mints a token.
func (o Outcome) Terminal() bool {
	return o == OutcomeGranted || o == OutcomeDenied || o == OutcomePartial
}

var denyMarkers = []string{
	"access denied",
	"access rejected",
	"verification failed",
	"identity not confirmed",
}

var grantMarkers = []string{
	"access granted",
	"identity confirmed",
	"verified",
	"authenticated",
}

// DeriveOutcome prefers the structured verdict and falls back to marker
// scanning only when the engine returned plain text. Marker scanning is the
// documented fallback, not the primary mechanism: it is fragile to phrasing
// drift.
func DeriveOutcome(result *TurnResult) Outcome {
	if result.Verdict != nil {
		return outcomeFromVerdict(result.Verdict)
	}
	return ScanMarkers(result.Reply)
}

func outcomeFromVerdict(v *Verdict) Outcome {
	if v.Progress != ProgressCompleted {
		return OutcomePending
	}
	switch v.Access {
	case AccessGranted:
		return OutcomeGranted
	case AccessPartial:
		return OutcomePartial
	default:
		// Unknown access values fail closed.
		return OutcomeDenied
	}
}

// ScanMarkers classifies a free-text reply by terminal keyword. The scan runs
// on a lower-cased copy; any denial marker beats any grant marker (fail
// closed), and repeated markers of one polarity count as a single signal.
func ScanMarkers(reply string) Outcome {
	normalized := strings.ToLower(reply)

	for _, marker := range denyMarkers {
		if strings.Contains(normalized, marker) {
			return OutcomeDenied
		}
	}
	for _, marker := range grantMarkers {
		if strings.Contains(normalized, marker) {
			return OutcomeGranted
		}
	}
	return OutcomePending
}

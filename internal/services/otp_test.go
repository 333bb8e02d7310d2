package services

import (
	"testing"
	"time"
)

func TestStaticOTPIssueAndVerify(t *testing.T) {
	issuer := NewOTPIssuer("static", "832194", 5*time.Minute)

	code, secret, expiresAt, err := issuer.Issue("WB001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "832194" {
		t.Fatalf("expected demo code, got %q", code)
	}
	if secret != "" {
		t.Fatalf("expected no secret in static mode, got %q", secret)
	}

	attempt := &PendingAuth{OTPExpiresAt: expiresAt}
	if !issuer.Verify(attempt, "832194") {
		t.Fatal("expected demo code to verify")
	}
	if issuer.Verify(attempt, "000000") {
		t.Fatal("expected wrong code to fail")
	}
}

func TestOTPVerifyRejectsExpired(t *testing.T) {
	issuer := NewOTPIssuer("static", "832194", 5*time.Minute)

	attempt := &PendingAuth{OTPExpiresAt: time.Now().Add(-time.Second)}
	if issuer.Verify(attempt, "832194") {
		t.Fatal("expected expired code to fail even when correct")
	}
}

func TestTOTPIssueAndVerify(t *testing.T) {
	issuer := NewOTPIssuer("totp", "", 5*time.Minute)

	code, secret, expiresAt, err := issuer.Issue("WB001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code == "" || secret == "" {
		t.Fatalf("expected code and secret, got %q / %q", code, secret)
	}

	attempt := &PendingAuth{OTPSecret: secret, OTPExpiresAt: expiresAt}
	if !issuer.Verify(attempt, code) {
		t.Fatal("expected issued code to verify")
	}
	if issuer.Verify(attempt, "000000") {
		t.Fatal("expected wrong code to fail")
	}
}

package services

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// OTPIssuer produces and checks the one-time codes for step two of the login
// flow. In "totp" mode each pending attempt gets its own secret and the
// 6-digit code is delivered out of band; "static" mode accepts the single
// demo code, the original portal's deliberate simplification.
type OTPIssuer struct {
	Mode     string
	DemoCode string
	Validity time.Duration
}

func NewOTPIssuer(mode, demoCode string, validity time.Duration) *OTPIssuer {
	if validity <= 0 {
		validity = 5 * time.Minute
	}
	return &OTPIssuer{Mode: mode, DemoCode: demoCode, Validity: validity}
}

func (i *OTPIssuer) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(i.Validity.Seconds()),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Issue returns the code to deliver plus the secret and expiry to stash on
// the pending attempt. Static mode returns an empty secret.
func (i *OTPIssuer) Issue(employeeNumber string) (code, secret string, expiresAt time.Time, err error) {
	expiresAt = time.Now().Add(i.Validity)

	if i.Mode != "totp" {
		return i.DemoCode, "", expiresAt, nil
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "BankPortal",
		AccountName: employeeNumber,
		Period:      uint(i.Validity.Seconds()),
	})
	if err != nil {
		return "", "", time.Time{}, err
	}

	code, err = totp.GenerateCodeCustom(key.Secret(), time.Now(), i.validateOpts())
	if err != nil {
		return "", "", time.Time{}, err
	}

	return code, key.Secret(), expiresAt, nil
}

// Verify checks a submitted code against the pending attempt.
func (i *OTPIssuer) Verify(attempt *PendingAuth, code string) bool {
	if time.Now().After(attempt.OTPExpiresAt) {
		return false
	}

	if i.Mode != "totp" {
		return code == i.DemoCode
	}

	ok, err := totp.ValidateCustom(code, attempt.OTPSecret, time.Now(), i.validateOpts())
	return err == nil && ok
}

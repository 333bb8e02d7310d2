package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtSecret          = []byte("change-me-in-production")
	jwtExpirationHours = 12
)

// CallerClaims identifies a browser-side caller session. The caller SID keys
// all pending-auth state; it is not an authentication credential by itself.
type CallerClaims struct {
	SID       string `json:"sid"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

func ConfigureJWT(secret string, expirationHours int) {
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if expirationHours > 0 {
		jwtExpirationHours = expirationHours
	}
}

func GenerateCallerToken(sid string) (string, error) {
	expiresAt := time.Now().Add(time.Duration(jwtExpirationHours) * time.Hour)
	claims := CallerClaims{
		SID:       sid,
		TokenType: "caller_session",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   sid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

func ValidateCallerToken(tokenString string) (*CallerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CallerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CallerClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid caller token")
	}

	if claims.TokenType != "caller_session" {
		return nil, fmt.Errorf("invalid token type")
	}

	if claims.SID == "" {
		return nil, fmt.Errorf("missing caller session id")
	}

	return claims, nil
}

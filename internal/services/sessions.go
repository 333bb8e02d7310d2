package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/bankportal/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionService manages the durable bearer tokens minted after full
// authentication. Raw tokens are random and shown once; only the SHA-256
// hash is stored. Expiry is enforced lazily: any read that finds an expired
// row deletes it and reports absence.
type SessionService struct {
	DB  *gorm.DB
	TTL time.Duration
}

func NewSessionService(db *gorm.DB, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionService{DB: db, TTL: ttl}
}

// Create mints a session token for the employee: wbp_<48 random hex chars>.
func (s *SessionService) Create(employeeID uuid.UUID) (string, *models.Session, error) {
	rawBytes := make([]byte, 24)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", nil, err
	}
	rawToken := "wbp_" + hex.EncodeToString(rawBytes)

	session := models.Session{
		EmployeeID: employeeID,
		TokenHash:  hashToken(rawToken),
		Prefix:     rawToken[:8],
		ExpiresAt:  time.Now().Add(s.TTL),
	}

	if err := s.DB.Create(&session).Error; err != nil {
		return "", nil, err
	}

	return rawToken, &session, nil
}

// Get resolves a raw token. Returns (nil, nil) when the token is unknown or
// has expired; expired rows are deleted on read.
func (s *SessionService) Get(rawToken string) (*models.Session, error) {
	var session models.Session
	err := s.DB.Preload("Employee").First(&session, "token_hash = ?", hashToken(rawToken)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	if !session.ExpiresAt.After(time.Now()) {
		// Concurrent deletes of the same expired row are harmless.
		s.DB.Delete(&models.Session{}, "token_hash = ?", session.TokenHash)
		return nil, nil
	}

	return &session, nil
}

// Delete removes the session for the raw token. Absence is not an error.
func (s *SessionService) Delete(rawToken string) error {
	return s.DB.Delete(&models.Session{}, "token_hash = ?", hashToken(rawToken)).Error
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a durable bearer credential minted only after the full
// three-step login flow. Only the SHA-256 hash of the raw token is stored.
type Session struct {
	BaseModel
	EmployeeID uuid.UUID `json:"employeeId" gorm:"type:uuid;not null;index"`
	TokenHash  string    `json:"-" gorm:"type:text;not null;uniqueIndex"`
	Prefix     string    `json:"prefix" gorm:"type:varchar(10);not null"`
	ExpiresAt  time.Time `json:"expiresAt" gorm:"not null;index"`

	Employee Employee `json:"-" gorm:"foreignKey:EmployeeID;references:ID;belongsTo"`
}

func (Session) TableName() string {
	return "sessions"
}

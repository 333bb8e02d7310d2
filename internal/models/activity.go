package models

import "github.com/google/uuid"

// Activity is the per-employee feed shown on the dashboard.
type Activity struct {
	BaseModel
	EmployeeID  uuid.UUID `json:"employeeId" gorm:"type:uuid;not null;index"`
	Action      string    `json:"action" gorm:"type:varchar(50);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
}

func (Activity) TableName() string {
	return "activities"
}

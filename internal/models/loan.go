package models

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
)

type LoanApplication struct {
	BaseModel
	LoanNumber      string         `json:"loanNumber" gorm:"type:varchar(20);uniqueIndex;not null"`
	CustomerName    string         `json:"customerName" gorm:"type:varchar(100);not null"`
	CustomerAccount string         `json:"customerAccount" gorm:"type:varchar(20);not null"`
	Amount          int64          `json:"amount" gorm:"not null"`
	Priority        string         `json:"priority" gorm:"type:varchar(10);not null"`
	Status          ApprovalStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

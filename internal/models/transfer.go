package models

type TransferRequest struct {
	BaseModel
	TransactionNumber string         `json:"transactionNumber" gorm:"type:varchar(20);uniqueIndex;not null"`
	CustomerName      string         `json:"customerName" gorm:"type:varchar(100);not null"`
	CustomerAccount   string         `json:"customerAccount" gorm:"type:varchar(20);not null"`
	Amount            int64          `json:"amount" gorm:"not null"`
	Priority          string         `json:"priority" gorm:"type:varchar(10);not null"`
	Status            ApprovalStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
}

func (TransferRequest) TableName() string {
	return "transfer_requests"
}

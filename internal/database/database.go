package database

import (
	"fmt"

	"github.com/bankportal/backend/internal/config"
	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/pkg/utils"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.Path)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := Seed(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Employee{},
		&models.Session{},
		&models.LoanApplication{},
		&models.TransferRequest{},
		&models.Activity{},
		&models.AuditLog{},
		&models.AuditExportCursor{},
	)
}

// Seed loads the demo data set: one active employee plus the pending loan
// applications and transfer requests shown on the dashboard.
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Employee{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword("password123")
	if err != nil {
		return err
	}

	employee := models.Employee{
		EmployeeID:   "WB001",
		PasswordHash: hash,
		Name:         "John Adebayo",
		Role:         "Senior Banking Officer",
		Phone:        "whatsapp:+2348012345678",
		IsActive:     true,
	}
	if err := db.Create(&employee).Error; err != nil {
		return err
	}

	loans := []models.LoanApplication{
		{LoanNumber: "LOAN-005623", CustomerName: "Emeka Okafor", CustomerAccount: "9876543210", Amount: 5000000, Priority: "medium", Status: models.ApprovalStatusPending},
		{LoanNumber: "LOAN-005624", CustomerName: "Chioma Nwosu", CustomerAccount: "2345678901", Amount: 3000000, Priority: "high", Status: models.ApprovalStatusPending},
		{LoanNumber: "LOAN-005625", CustomerName: "Aisha Bello", CustomerAccount: "4567890123", Amount: 7000000, Priority: "low", Status: models.ApprovalStatusPending},
	}
	if err := db.Create(&loans).Error; err != nil {
		return err
	}

	transfers := []models.TransferRequest{
		{TransactionNumber: "TXN-001247", CustomerName: "Adunni Adebayo", CustomerAccount: "1234567890", Amount: 2500000, Priority: "high", Status: models.ApprovalStatusPending},
		{TransactionNumber: "TXN-001248", CustomerName: "Femi Adekunle", CustomerAccount: "3456789012", Amount: 1500000, Priority: "medium", Status: models.ApprovalStatusPending},
		{TransactionNumber: "TXN-001249", CustomerName: "Ngozi Okoro", CustomerAccount: "5678901234", Amount: 500000, Priority: "high", Status: models.ApprovalStatusPending},
	}
	return db.Create(&transfers).Error
}

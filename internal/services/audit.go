package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bankportal/backend/internal/models"
	"github.com/bankportal/backend/internal/storage"
	"github.com/bankportal/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEntry struct {
	EmployeeID *uuid.UUID
	Action     string
	Details    map[string]interface{}
	IPAddress  string
}

// AuditService records security-relevant events. Entries are queued and
// written by a single background goroutine; each audit row also derives the
// human-readable activity shown in the employee's dashboard feed.
type AuditService struct {
	DB      *gorm.DB
	Storage *storage.MinIOClient
	queue   chan models.AuditLog
}

func NewAuditService(db *gorm.DB, storageClient *storage.MinIOClient) *AuditService {
	s := &AuditService{
		DB:      db,
		Storage: storageClient,
		queue:   make(chan models.AuditLog, 1000),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		EmployeeID: entry.EmployeeID,
		Action:     entry.Action,
		Details:    entry.Details,
		IPAddress:  entry.IPAddress,
		CreatedAt:  time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
			continue
		}
		s.recordActivity(row)
	}
}

func (s *AuditService) recordActivity(log models.AuditLog) {
	if log.EmployeeID == nil {
		return
	}

	var kind, description string

	switch log.Action {
	case "auth.login":
		kind = "login"
		description = "Employee logged in successfully"
	case "auth.logout":
		kind = "logout"
		description = "Employee logged out"
	case "loan.approve":
		kind = "loan_approved"
		description = fmt.Sprintf("Loan application %s approved", detailString(log.Details, "loan_number"))
	case "loan.reject":
		kind = "loan_rejected"
		description = fmt.Sprintf("Loan application %s rejected", detailString(log.Details, "loan_number"))
	case "transfer.approve":
		kind = "transfer_approved"
		description = fmt.Sprintf("Transfer request %s approved", detailString(log.Details, "transaction_number"))
	case "transfer.reject":
		kind = "transfer_rejected"
		description = fmt.Sprintf("Transfer request %s rejected", detailString(log.Details, "transaction_number"))
	default:
		return
	}

	activity := models.Activity{
		EmployeeID:  *log.EmployeeID,
		Action:      kind,
		Description: description,
	}
	if err := s.DB.Create(&activity).Error; err != nil {
		logger.Error("activity_insert_failed", err, map[string]interface{}{
			"action": log.Action,
		})
	}
}

// StartExporter runs a background goroutine that periodically exports new
// audit log rows to object storage as NDJSON files.
func (s *AuditService) StartExporter(interval time.Duration) {
	if s.Storage == nil {
		logger.Info("audit_exporter_disabled", map[string]interface{}{
			"reason": "no storage client configured",
		})
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			s.export()
		}
	}()

	logger.Info("audit_exporter_started", map[string]interface{}{
		"interval": interval.String(),
	})
}

func (s *AuditService) export() {
	var cursor models.AuditExportCursor
	err := s.DB.First(&cursor).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			cursor = models.AuditExportCursor{
				LastExportAt: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
			}
			if createErr := s.DB.Create(&cursor).Error; createErr != nil {
				logger.Error("audit_export_cursor_create_failed", createErr, nil)
				return
			}
		} else {
			logger.Error("audit_export_cursor_load_failed", err, nil)
			return
		}
	}

	var logs []models.AuditLog
	if err := s.DB.Where("created_at > ?", cursor.LastExportAt).
		Order("created_at ASC").
		Limit(10000).
		Find(&logs).Error; err != nil {
		logger.Error("audit_export_query_failed", err, nil)
		return
	}

	if len(logs) == 0 {
		return
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range logs {
		if err := enc.Encode(row); err != nil {
			logger.Error("audit_export_encode_failed", err, map[string]interface{}{
				"log_id": row.ID.String(),
			})
			continue
		}
	}

	now := time.Now().UTC()
	objectName := fmt.Sprintf("audit-logs/%s/%s.ndjson",
		now.Format("2006/01/02"),
		now.Format("15-04-05"),
	)

	if err := s.Storage.Upload(
		context.Background(),
		objectName,
		&buf,
		int64(buf.Len()),
		"application/x-ndjson",
	); err != nil {
		return
	}

	lastCreatedAt := logs[len(logs)-1].CreatedAt
	s.DB.Model(&cursor).Updates(map[string]interface{}{
		"last_export_at": lastCreatedAt,
		"exported_count": gorm.Expr("exported_count + ?", len(logs)),
	})

	logger.Info("audit_export_success", map[string]interface{}{
		"object_name": objectName,
		"count":       len(logs),
	})
}

func detailString(details map[string]interface{}, key string) string {
	if details == nil {
		return ""
	}
	v, ok := details[key]
	if !ok {
		return ""
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return str
}

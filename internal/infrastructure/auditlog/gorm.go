package auditlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"microcredit-backend/internal/domain/audit"
)

// Entry is the persisted form of an audit event. Detail is stored as JSON.
type Entry struct {
	ID       uint64    `gorm:"primaryKey;column:id"`
	Action   string    `gorm:"size:60;index:idx_audit_action"`
	UserID   string    `gorm:"size:32;index:idx_audit_user"`
	Entity   string    `gorm:"size:40"`
	EntityID string    `gorm:"size:32"`
	Detail   string    `gorm:"type:json"`
	At       time.Time `gorm:"index:idx_audit_at"`
}

func (Entry) TableName() string { return "audit_logs" }

// GormSink writes audit events to the database. Failures are logged and
// swallowed; auditing never fails a business operation.
type GormSink struct {
	db  *gorm.DB
	log *logrus.Logger
}

func NewGormSink(db *gorm.DB, log *logrus.Logger) (*GormSink, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &GormSink{db: db, log: log}, nil
}

func (s *GormSink) Record(ctx context.Context, e audit.Event) {
	var detail string
	if e.Detail != nil {
		if b, err := json.Marshal(e.Detail); err == nil {
			detail = string(b)
		}
	}
	entry := Entry{
		Action:   e.Action,
		UserID:   e.UserID,
		Entity:   e.Entity,
		EntityID: e.EntityID,
		Detail:   detail,
		At:       e.At,
	}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		s.log.WithError(err).WithField("action", e.Action).Warn("audit write failed")
	}
}

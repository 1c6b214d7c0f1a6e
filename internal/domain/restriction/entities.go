package restriction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Machine-readable reason codes, in evaluation precedence order.
const (
	CodeMaxActiveCredits  = "max_active_credits"
	CodeDebtRatioExceeded = "debt_ratio_exceeded"
	CodeCooldownActive    = "cooldown_active"
)

type Reason struct {
	Code      string  `json:"code"`
	Message   string  `json:"message"`
	Threshold float64 `json:"threshold"`
	Actual    float64 `json:"actual"`
}

type ReasonList []Reason

func (l ReasonList) Value() (driver.Value, error) { return json.Marshal(l) }

func (l *ReasonList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, ok := src.(string); ok {
			b = []byte(s)
		} else {
			return errors.New("reason list: unsupported column type")
		}
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// DebtRestriction is a cached snapshot of a pure function over the active
// ledger and the financial profile. It is recomputed and upserted on every
// ledger mutation, never hand-edited.
type DebtRestriction struct {
	ID                  uint64     `gorm:"primaryKey;column:id" json:"-"`
	UserID              string     `gorm:"size:32;uniqueIndex:ux_restrictions_user" json:"user_id"`
	CanApply            bool       `json:"can_apply"`
	MaxActiveCredits    int        `json:"max_active_credits"`
	ActiveCreditCount   int        `json:"active_credit_count"`
	TotalActiveDebt     float64    `gorm:"type:decimal(14,2)" json:"total_active_debt"`
	DebtRatio           float64    `gorm:"type:decimal(6,4)" json:"debt_ratio"`
	BlockingReason      string     `gorm:"size:255" json:"blocking_reason,omitempty"`
	Reasons             ReasonList `gorm:"type:json" json:"reasons,omitempty"`
	LastApplicationDate *time.Time `json:"last_application_date,omitempty"`
	NextEligibleDate    *time.Time `json:"next_eligible_date,omitempty"`
	CooldownDaysLeft    int        `json:"cooldown_days_left"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DebtRestriction) TableName() string { return "credit_restrictions" }

package scoring

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "very_low"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
)

type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionPending  Decision = "pending"
	DecisionRejected Decision = "rejected"
)

// Factor is one named contribution to a score, with its relative impact in
// percent.
type Factor struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Impact int     `json:"impact"`
}

type FactorList []Factor

func (l FactorList) Value() (driver.Value, error) { return json.Marshal(l) }

func (l *FactorList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, ok := src.(string); ok {
			b = []byte(s)
		} else {
			return errors.New("factor list: unsupported column type")
		}
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

type StringList []string

func (l StringList) Value() (driver.Value, error) { return json.Marshal(l) }

func (l *StringList) Scan(src any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, ok := src.(string); ok {
			b = []byte(s)
		} else {
			return errors.New("string list: unsupported column type")
		}
	}
	if len(b) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(b, l)
}

// Result is one scoring run. Rows are append-only: a newer run supersedes an
// older one, nothing is ever updated in place.
type Result struct {
	ID              uint64     `gorm:"primaryKey;column:id" json:"-"`
	UserID          string     `gorm:"size:32;index:idx_scorings_user" json:"user_id"`
	RequestID       *string    `gorm:"size:32" json:"request_id,omitempty"`
	Score           int        `json:"score"`
	RiskLevel       RiskLevel  `gorm:"size:10" json:"risk_level"`
	Probability     float64    `gorm:"type:decimal(4,2)" json:"probability"`
	Decision        Decision   `gorm:"size:10" json:"decision"`
	EligibleAmount  float64    `gorm:"type:decimal(14,2)" json:"eligible_amount"`
	IncomeScore     int        `json:"income_score"`
	DebtRatioScore  int        `json:"debt_ratio_score"`
	Factors         FactorList `gorm:"type:json" json:"factors"`
	Recommendations StringList `gorm:"type:json" json:"recommendations"`
	ModelVersion    string     `gorm:"size:10" json:"model_version"`
	Degraded        bool       `json:"degraded"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Result) TableName() string { return "credit_scorings" }

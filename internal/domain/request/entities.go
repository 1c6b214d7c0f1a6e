package request

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
)

type PersonalInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type CreditDetails struct {
	RequestedAmount float64 `json:"requested_amount"`
	DurationMonths  int     `json:"duration_months"`
	Purpose         string  `json:"purpose"`
}

type FinancialDetails struct {
	MonthlyIncome      float64 `json:"monthly_income"`
	OtherIncome        float64 `json:"other_income"`
	MonthlyCharges     float64 `json:"monthly_charges"`
	ExistingDebts      float64 `json:"existing_debts"`
	EmploymentStatus   string  `json:"employment_status"`
	JobSeniorityMonths int     `json:"job_seniority_months"`
}

func jsonValue(v any) (driver.Value, error) { return json.Marshal(v) }

func jsonScan(src, dst any) error {
	b, ok := src.([]byte)
	if !ok {
		if s, ok := src.(string); ok {
			b = []byte(s)
		} else {
			return errors.New("json column: unsupported type")
		}
	}
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, dst)
}

func (p PersonalInfo) Value() (driver.Value, error)     { return jsonValue(p) }
func (p *PersonalInfo) Scan(src any) error              { return jsonScan(src, p) }
func (d CreditDetails) Value() (driver.Value, error)    { return jsonValue(d) }
func (d *CreditDetails) Scan(src any) error             { return jsonScan(src, d) }
func (f FinancialDetails) Value() (driver.Value, error) { return jsonValue(f) }
func (f *FinancialDetails) Scan(src any) error          { return jsonScan(src, f) }

// CreditRequest is a long-form, reviewed application. Status moves through
// the machine in status.go; every move appends one ReviewHistory row.
type CreditRequest struct {
	ID            uint64 `gorm:"primaryKey;column:id" json:"-"`
	RequestID     string `gorm:"size:32;uniqueIndex:ux_requests_request_id" json:"request_id"`
	RequestNumber string `gorm:"size:20;uniqueIndex:ux_requests_number" json:"request_number"`
	UserID        string `gorm:"size:32;index:idx_requests_user" json:"user_id"`
	Status        Status `gorm:"size:15;default:'draft'" json:"status"`

	PersonalInfo     PersonalInfo     `gorm:"type:json" json:"personal_info"`
	CreditDetails    CreditDetails    `gorm:"type:json" json:"credit_details"`
	FinancialDetails FinancialDetails `gorm:"type:json" json:"financial_details"`

	SubmissionDate    *time.Time `json:"submission_date,omitempty"`
	ReviewStartedDate *time.Time `json:"review_started_date,omitempty"`
	DecisionDate      *time.Time `json:"decision_date,omitempty"`
	DecisionBy        string     `gorm:"size:32" json:"decision_by,omitempty"`
	DecisionNotes     string     `gorm:"type:text" json:"decision_notes,omitempty"`

	ApprovedAmount         *float64 `gorm:"type:decimal(14,2)" json:"approved_amount,omitempty"`
	ApprovedRate           *float64 `gorm:"type:decimal(6,4)" json:"approved_rate,omitempty"`
	ApprovedDurationMonths *int     `json:"approved_duration_months,omitempty"`
	AssignedTo             string   `gorm:"size:32;index:idx_requests_assignee" json:"assigned_to,omitempty"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (CreditRequest) TableName() string { return "credit_requests" }

// ReviewHistory is the append-only audit trail of a request. Rows are never
// edited or deleted.
type ReviewHistory struct {
	ID             uint64    `gorm:"primaryKey;column:id" json:"-"`
	RequestRef     uint64    `gorm:"column:request_ref;index:idx_history_request;not null" json:"-"`
	Action         string    `gorm:"size:120" json:"action"`
	PreviousStatus string    `gorm:"size:15" json:"previous_status,omitempty"`
	NewStatus      string    `gorm:"size:15" json:"new_status,omitempty"`
	ActorID        string    `gorm:"size:32" json:"actor_id,omitempty"`
	ActorName      string    `gorm:"size:80" json:"actor_name"`
	Comment        string    `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ReviewHistory) TableName() string { return "credit_request_history" }

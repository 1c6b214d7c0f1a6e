package credit

import "time"

type Type string

const (
	TypeSalaryAdvance Type = "salary_advance"
	TypeEmergency     Type = "emergency"
	TypeConsumption   Type = "consumption"
)

func (t Type) Valid() bool {
	switch t {
	case TypeSalaryAdvance, TypeEmergency, TypeConsumption:
		return true
	}
	return false
}

// InterestRate is the flat rate applied to the principal for one term.
func (t Type) InterestRate() float64 {
	switch t {
	case TypeSalaryAdvance:
		return 0.03
	case TypeEmergency:
		return 0.04
	case TypeConsumption:
		return 0.05
	}
	return 0.05
}

// DueDate computes the repayment deadline for a credit issued at now.
// Salary advances fall due at the end of the following month; emergency
// credits in 30 days; consumption credits in 45 days.
func (t Type) DueDate(now time.Time) time.Time {
	switch t {
	case TypeSalaryAdvance:
		firstOfNext := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return firstOfNext.AddDate(0, 1, -1)
	case TypeEmergency:
		return now.AddDate(0, 0, 30)
	case TypeConsumption:
		return now.AddDate(0, 0, 45)
	}
	return now.AddDate(0, 0, 30)
}

type Status string

const (
	StatusActive  Status = "active"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Open reports whether the credit still counts against portfolio limits.
func (s Status) Open() bool { return s == StatusActive || s == StatusOverdue }

// DisbursedCredit is one ledger row: an issued credit and what remains of it.
// RemainingAmount never goes below zero; status flips to paid exactly when it
// reaches zero.
type DisbursedCredit struct {
	ID                uint64     `gorm:"primaryKey;column:id" json:"-"`
	CreditID          string     `gorm:"size:32;uniqueIndex:ux_credits_credit_id" json:"credit_id"`
	UserID            string     `gorm:"size:32;index:idx_credits_user" json:"user_id"`
	RequestRef        *uint64    `gorm:"column:request_ref" json:"-"`
	Type              Type       `gorm:"size:20" json:"type"`
	Principal         float64    `gorm:"type:decimal(14,2)" json:"principal"`
	TotalAmount       float64    `gorm:"type:decimal(14,2)" json:"total_amount"`
	RemainingAmount   float64    `gorm:"type:decimal(14,2)" json:"remaining_amount"`
	InterestRate      float64    `gorm:"type:decimal(6,4)" json:"interest_rate"`
	Status            Status     `gorm:"size:10;default:'active';index:idx_credits_status" json:"status"`
	ApprovedDate      time.Time  `json:"approved_date"`
	DueDate           time.Time  `json:"due_date"`
	NextPaymentDate   *time.Time `json:"next_payment_date,omitempty"`
	NextPaymentAmount float64    `gorm:"type:decimal(14,2)" json:"next_payment_amount"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (DisbursedCredit) TableName() string { return "disbursed_credits" }

// PaymentRecord is one applied payment. Append-only.
type PaymentRecord struct {
	ID           uint64    `gorm:"primaryKey;column:id" json:"-"`
	CreditRef    uint64    `gorm:"column:credit_ref;index:idx_payments_credit;not null" json:"-"`
	UserID       string    `gorm:"size:32;index:idx_payments_user" json:"user_id"`
	Amount       float64   `gorm:"type:decimal(14,2)" json:"amount"`
	PaidAt       time.Time `json:"paid_at"`
	ScheduledFor time.Time `json:"scheduled_for"`
	Late         bool      `json:"late"`
	DaysLate     int       `json:"days_late"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (PaymentRecord) TableName() string { return "credit_payments" }

package profile

import (
	"time"
)

type EmploymentStatus string

const (
	EmploymentPermanent    EmploymentStatus = "permanent"
	EmploymentFixedTerm    EmploymentStatus = "fixed_term"
	EmploymentIndependent  EmploymentStatus = "independent"
	EmploymentCivilServant EmploymentStatus = "civil_servant"
	EmploymentOther        EmploymentStatus = "other"
)

func (s EmploymentStatus) Valid() bool {
	switch s {
	case EmploymentPermanent, EmploymentFixedTerm, EmploymentIndependent, EmploymentCivilServant, EmploymentOther:
		return true
	}
	return false
}

// FinancialProfile is the per-user income snapshot the scoring engine reads.
// ExistingDebts is kept in sync with the active-credit ledger after every
// registration or payment.
type FinancialProfile struct {
	ID                 uint64           `gorm:"primaryKey;column:id" json:"-"`
	UserID             string           `gorm:"size:32;uniqueIndex:ux_profiles_user" json:"user_id"`
	MonthlyIncome      float64          `gorm:"type:decimal(14,2)" json:"monthly_income"`
	OtherIncome        float64          `gorm:"type:decimal(14,2)" json:"other_income"`
	MonthlyCharges     float64          `gorm:"type:decimal(14,2)" json:"monthly_charges"`
	ExistingDebts      float64          `gorm:"type:decimal(14,2)" json:"existing_debts"`
	EmploymentStatus   EmploymentStatus `gorm:"size:20" json:"employment_status"`
	JobSeniorityMonths int              `json:"job_seniority_months"`
	BirthDate          *time.Time       `gorm:"type:date" json:"birth_date,omitempty"`
	CreatedAt          time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (FinancialProfile) TableName() string { return "financial_profiles" }

package request

import (
	domain "microcredit-backend/internal/domain/request"
)

// Actor identifies who performs an operation. It is always passed in
// explicitly; the engine has no notion of a current user.
type Actor struct {
	ID   string
	Name string
}

func (a Actor) displayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "client"
}

type CreateInput struct {
	UserID           string
	PersonalInfo     domain.PersonalInfo
	CreditDetails    domain.CreditDetails
	FinancialDetails domain.FinancialDetails
}

// UpdateInput carries partial edits; nil fields stay untouched.
type UpdateInput struct {
	PersonalInfo     *domain.PersonalInfo
	CreditDetails    *domain.CreditDetails
	FinancialDetails *domain.FinancialDetails
}

type DecideInput struct {
	Approve                bool
	Notes                  string
	ApprovedAmount         *float64
	ApprovedRate           *float64
	ApprovedDurationMonths *int
}

type UploadInput struct {
	Type     domain.DocumentType
	Filename string
	MimeType string
	Data     []byte
}

// Stats summarizes a user's request portfolio.
type Stats struct {
	Total                int     `json:"total"`
	Draft                int     `json:"draft"`
	Submitted            int     `json:"submitted"`
	InReview             int     `json:"in_review"`
	Approved             int     `json:"approved"`
	Rejected             int     `json:"rejected"`
	Disbursed            int     `json:"disbursed"`
	TotalRequestedAmount float64 `json:"total_requested_amount"`
}

package request

import (
	"microcredit-backend/internal/domain/errs"
	domain "microcredit-backend/internal/domain/request"
)

const maxDocumentSize = 10 * 1024 * 1024

var allowedDocumentMIME = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// validateForSubmission collects every violated rule; a request only leaves
// draft/requires_info when this list is empty.
func validateForSubmission(r *domain.CreditRequest, docs []domain.Document) *errs.ValidationError {
	ve := &errs.ValidationError{}

	if r.PersonalInfo.FullName == "" {
		ve.Add("personal_info.full_name", "is required")
	}
	if r.PersonalInfo.Email == "" {
		ve.Add("personal_info.email", "is required")
	}
	if r.PersonalInfo.Phone == "" {
		ve.Add("personal_info.phone", "is required")
	}

	if r.CreditDetails.RequestedAmount <= 0 {
		ve.Add("credit_details.requested_amount", "must be greater than zero")
	}
	if r.CreditDetails.DurationMonths <= 0 {
		ve.Add("credit_details.duration_months", "must be greater than zero")
	}
	if r.CreditDetails.Purpose == "" {
		ve.Add("credit_details.purpose", "is required")
	}

	if r.FinancialDetails.MonthlyIncome <= 0 {
		ve.Add("financial_details.monthly_income", "must be greater than zero")
	}

	present := make(map[domain.DocumentType]bool, len(docs))
	for _, d := range docs {
		present[d.Type] = true
	}
	for _, t := range domain.RequiredDocumentTypes() {
		if !present[t] {
			ve.Add("documents."+string(t), "required document missing: "+t.DisplayName())
		}
	}

	if ve.Empty() {
		return nil
	}
	return ve
}

// validateUpload checks size, MIME type and document type; like submission
// validation it reports every failure, not just the first.
func validateUpload(in UploadInput) *errs.ValidationError {
	ve := &errs.ValidationError{}

	if !in.Type.Known() {
		ve.Add("type", "unknown document type")
	}
	if len(in.Data) == 0 {
		ve.Add("file", "is empty")
	}
	if len(in.Data) > maxDocumentSize {
		ve.Add("file", "exceeds the 10MB limit")
	}
	if !allowedDocumentMIME[in.MimeType] {
		ve.Add("file", "type not allowed (pdf, jpeg, png, doc, docx)")
	}

	if ve.Empty() {
		return nil
	}
	return ve
}

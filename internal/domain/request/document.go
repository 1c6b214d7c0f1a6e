package request

import "time"

type DocumentType string

const (
	DocIdentityProof         DocumentType = "identity_proof"
	DocIncomeProof           DocumentType = "income_proof"
	DocEmploymentCertificate DocumentType = "employment_certificate"
	DocBankStatements        DocumentType = "bank_statements"
	DocBusinessPlan          DocumentType = "business_plan"
	DocPropertyDeeds         DocumentType = "property_deeds"
	DocGuarantorDocuments    DocumentType = "guarantor_documents"
)

var documentNames = map[DocumentType]string{
	DocIdentityProof:         "Identity proof",
	DocIncomeProof:           "Income proof",
	DocEmploymentCertificate: "Employment certificate",
	DocBankStatements:        "Bank statements",
	DocBusinessPlan:          "Business plan",
	DocPropertyDeeds:         "Property deeds",
	DocGuarantorDocuments:    "Guarantor documents",
}

func (t DocumentType) Known() bool {
	_, ok := documentNames[t]
	return ok
}

func (t DocumentType) DisplayName() string {
	if n, ok := documentNames[t]; ok {
		return n
	}
	return string(t)
}

// Required reports whether submission validation demands this document type.
func (t DocumentType) Required() bool {
	switch t {
	case DocIdentityProof, DocIncomeProof, DocEmploymentCertificate:
		return true
	}
	return false
}

func RequiredDocumentTypes() []DocumentType {
	return []DocumentType{DocIdentityProof, DocIncomeProof, DocEmploymentCertificate}
}

type Document struct {
	ID               uint64       `gorm:"primaryKey;column:id" json:"-"`
	DocumentID       string       `gorm:"size:32;uniqueIndex:ux_documents_document_id" json:"document_id"`
	RequestRef       uint64       `gorm:"column:request_ref;index:idx_documents_request;not null" json:"-"`
	Type             DocumentType `gorm:"size:30" json:"type"`
	Name             string       `gorm:"size:80" json:"name"`
	OriginalFilename string       `gorm:"size:255" json:"original_filename"`
	Path             string       `gorm:"type:text" json:"-"`
	SizeBytes        int64        `json:"size_bytes"`
	MimeType         string       `gorm:"size:100" json:"mime_type"`
	Checksum         string       `gorm:"size:64" json:"checksum"`
	Required         bool         `json:"required"`
	UploadedBy       string       `gorm:"size:32" json:"uploaded_by,omitempty"`
	CreatedAt        time.Time    `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Document) TableName() string { return "credit_request_documents" }

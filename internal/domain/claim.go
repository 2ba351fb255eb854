package domain

import "time"

const (
	ClaimTypeForm     = "B"
	ClaimTypeExternal = "E"
)

type ClaimStatus string

const (
	ClaimStatusCancelled ClaimStatus = "cancelled"
	ClaimStatusStored    ClaimStatus = "stored"
	ClaimStatusNotStored ClaimStatus = "not_stored"
)

// ClaimRecord is one row of the document control main table: a numbered
// document checked out by a claimant, later stored or cancelled.
type ClaimRecord struct {
	IDNo              string      `json:"id_no"`
	Type              string      `json:"type"`
	DateTime          *time.Time  `json:"date_time,omitempty"`
	ClaimantID        string      `json:"id"`
	PersonName        string      `json:"person_name"`
	Name              string      `json:"name"`
	Purpose           string      `json:"purpose"`
	OriginalDocNo     string      `json:"original_doc_no,omitempty"`
	DocVer            string      `json:"doc_ver,omitempty"`
	ProjectName       string      `json:"project_name,omitempty"`
	InTime            *time.Time  `json:"in_time,omitempty"`
	UnuseTime         *time.Time  `json:"unuse_time,omitempty"`
	RejectReason      string      `json:"reject_reason,omitempty"`
	FileExtension     string      `json:"file_extension"`
	IsConfidential    *bool       `json:"is_confidential,omitempty"`
	IsSensitive       *bool       `json:"is_sensitive,omitempty"`
	InTimeModifyBy    string      `json:"in_time_modify_by,omitempty"`
	InTimeModifyAt    *time.Time  `json:"in_time_modify_at,omitempty"`
	UnuseTimeModifyBy string      `json:"unuse_time_modify_by,omitempty"`
	UnuseTimeModifyAt *time.Time  `json:"unuse_time_modify_at,omitempty"`
	Status            ClaimStatus `json:"doc_status"`
}

func (c *ClaimRecord) DeriveStatus() ClaimStatus {
	switch {
	case c.UnuseTime != nil || c.RejectReason != "":
		return ClaimStatusCancelled
	case c.InTime != nil:
		return ClaimStatusStored
	default:
		return ClaimStatusNotStored
	}
}

// Open reports whether the record can still be stored or cancelled.
func (c *ClaimRecord) Open() bool {
	return c.InTime == nil && c.UnuseTime == nil && c.RejectReason == ""
}

type ClaimRequest struct {
	Type          string `json:"type" validate:"required,oneof=B E"`
	DateTime      string `json:"date_time" validate:"required,datetime=2006-01-02"`
	ClaimantID    string `json:"claimant_id"`
	OriginalDocNo string `json:"original_doc_no" validate:"max=50"`
	DocVer        string `json:"doc_ver" validate:"max=10"`
	Name          string `json:"name" validate:"max=200"`
	Purpose       string `json:"purpose" validate:"max=500"`
	ProjectName   string `json:"project_name" validate:"max=200"`
	Reserve       bool   `json:"reserve"`
}

// EditClaimRequest is a manager correction of a claim's descriptive fields.
type EditClaimRequest struct {
	ClaimantID    string `json:"claimant_id" validate:"required"`
	OriginalDocNo string `json:"original_doc_no" validate:"max=50"`
	DocVer        string `json:"doc_ver" validate:"max=10"`
	Name          string `json:"name" validate:"required,max=200"`
	Purpose       string `json:"purpose" validate:"required,max=500"`
	ProjectName   string `json:"project_name" validate:"max=200"`
}

// StockInRequest stores one claim. An empty InTime takes the claim back out
// of storage.
type StockInRequest struct {
	InTime         string `json:"in_time" validate:"omitempty,datetime=2006-01-02"`
	IsConfidential *bool  `json:"is_confidential"`
	IsSensitive    *bool  `json:"is_sensitive"`
}

type CancelClaimRequest struct {
	UnuseTime    string `json:"unuse_time" validate:"required,datetime=2006-01-02"`
	RejectReason string `json:"reject_reason" validate:"required,max=500"`
}

type StoreRequest struct {
	DocNos         string `json:"doc_nos" validate:"required"`
	InTime         string `json:"in_time" validate:"required,datetime=2006-01-02"`
	IsConfidential *bool  `json:"is_confidential" validate:"required"`
	IsSensitive    *bool  `json:"is_sensitive" validate:"required"`
}

type StoreItemResult struct {
	IDNo    string `json:"id_no"`
	Stored  bool   `json:"stored"`
	Message string `json:"message"`
}

type StoreResult struct {
	Stored  []string          `json:"stored"`
	Items   []StoreItemResult `json:"items"`
	Invalid []string          `json:"invalid,omitempty"`
}

type ClaimQuery struct {
	ClaimantID    string `json:"claimant_id"`
	IDNo          string `json:"id_no"`
	OriginalDocNo string `json:"original_doc_no"`
	Name          string `json:"name"`
	Type          string `json:"type" validate:"omitempty,oneof=B E"`
	Status        string `json:"status" validate:"omitempty,oneof=cancelled stored not_stored"`
	DateFrom      string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

type NextClaimNumber struct {
	Type    string `json:"type"`
	Reserve bool   `json:"reserve"`
	IDNo    string `json:"id_no"`
}

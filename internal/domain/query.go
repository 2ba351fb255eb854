package domain

import (
	"encoding/json"
	"time"
)

const DefaultPageSize = 10

// Pagination is the paging and sorting part of every list query.
type Pagination struct {
	PageNumber int    `json:"page_number"`
	PageSize   int    `json:"page_size"`
	OrderBy    string `json:"order_by"`
	SortDir    string `json:"sort_dir"`
}

// Normalize fixes non-positive paging values and fills the default sort
// when none was requested.
func (p *Pagination) Normalize(defaultSize int, defaultOrder, defaultDir string) {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if p.PageNumber <= 0 {
		p.PageNumber = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.OrderBy == "" {
		p.OrderBy = defaultOrder
		p.SortDir = defaultDir
	}
}

// Page keys identify which list a stored query belongs to.
const (
	PageForms   = "forms"
	PageClaims  = "claims"
	PageHistory = "history"

	PageFeedback       = "feedback"
	PageProductClasses = "product_classes"
	PageSuppliers      = "suppliers"
	PageSupplierAssess = "supplier_assessments"
	PageReassessments  = "supplier_reassessments"
	PagePurchases      = "purchases"
)

// QueryState is a list filter remembered per user and page.
type QueryState struct {
	ID        string          `json:"_id"`
	Rev       string          `json:"_rev,omitempty"`
	DocType   string          `json:"doc_type"`
	UserID    string          `json:"user_id"`
	PageKey   string          `json:"page_key"`
	Filter    json.RawMessage `json:"filter"`
	UpdatedAt time.Time       `json:"updated_at"`
}

package domain

import "time"

const (
	AssessQualified                 = "qualified"
	AssessUnqualified               = "unqualified"
	AssessQualifiedAfterImprovement = "qualified_after_improvement"
)

const (
	RiskHigh   = "high"
	RiskMedium = "medium"
	RiskLow    = "low"
)

// Reassessment outcomes that are reported but never recorded.
const (
	ReassessNoOrders = "no_orders_in_period"
	ReassessRemove   = "no_orders_in_three_years"
)

type ProductClass struct {
	ProductClass  string `json:"product_class"`
	SupplierClass string `json:"supplier_class"`
	Title         string `json:"product_class_title"`
	Disabled      bool   `json:"disabled"`
}

type ProductClassRequest struct {
	ProductClass  string `json:"product_class" validate:"required,max=50"`
	SupplierClass string `json:"supplier_class" validate:"required,max=10"`
	Title         string `json:"product_class_title" validate:"required,max=100"`
	Disabled      bool   `json:"disabled"`
}

type ProductClassQuery struct {
	ProductClass    string `json:"product_class"`
	Title           string `json:"product_class_title"`
	IncludeDisabled bool   `json:"include_disabled"`
	Pagination
}

// QualifiedSupplier is a supplier approved for one product class.
type QualifiedSupplier struct {
	SupplierName    string     `json:"supplier_name"`
	ProductClass    string     `json:"product_class"`
	Title           string     `json:"product_class_title"`
	SupplierNo      string     `json:"supplier_no"`
	SupplierClass   string     `json:"supplier_class"`
	FirstAssessDate *time.Time `json:"supplier_1st_assess_date,omitempty"`
	RiskLevel       string     `json:"risk_level"`
	ReassessDate    *time.Time `json:"reassess_date,omitempty"`
	ReassessResult  string     `json:"reassess_result"`
}

type EditSupplierRequest struct {
	SupplierNo string `json:"supplier_no" validate:"max=20"`
}

type SupplierQuery struct {
	SupplierName   string `json:"supplier_name"`
	SupplierNo     string `json:"supplier_no"`
	ProductClass   string `json:"product_class"`
	SupplierClass  string `json:"supplier_class"`
	ReassessResult string `json:"reassess_result"`
	Pagination
}

// SupplierAssessment is the first assessment that qualifies a supplier.
type SupplierAssessment struct {
	SupplierName string     `json:"supplier_name"`
	ProductClass string     `json:"product_class"`
	AssessDate   *time.Time `json:"assess_date,omitempty"`
	ProductName  string     `json:"product_name"`
	ProductSpec  string     `json:"product_spec"`
	Visit        string     `json:"visit"`
	Reason       string     `json:"reason"`
	AssessResult string     `json:"assess_result"`
	Improvement  string     `json:"improvement"`
	RiskLevel    string     `json:"risk_level"`
	Remarks      string     `json:"remarks"`
	AssessPeople string     `json:"assess_people"`
	AssessNo     string     `json:"supplier_1st_assess_no"`
}

type FirstAssessRequest struct {
	SupplierName string `json:"supplier_name" validate:"required,max=100"`
	SupplierNo   string `json:"supplier_no" validate:"max=20"`
	ProductClass string `json:"product_class" validate:"required,max=50"`
	AssessDate   string `json:"assess_date" validate:"required,datetime=2006-01-02"`
	ProductName  string `json:"product_name" validate:"max=200"`
	ProductSpec  string `json:"product_spec" validate:"max=200"`
	Visit        string `json:"visit" validate:"max=500"`
	Reason       string `json:"reason" validate:"required,max=500"`
	AssessResult string `json:"assess_result" validate:"required,oneof=qualified unqualified qualified_after_improvement"`
	Improvement  string `json:"improvement" validate:"max=500"`
	RiskLevel    string `json:"risk_level" validate:"required,oneof=high medium low"`
	Remarks      string `json:"remarks" validate:"max=500"`
	AssessPeople string `json:"assess_people" validate:"max=100"`
	AssessNo     string `json:"supplier_1st_assess_no" validate:"required,max=20"`
}

type AssessmentQuery struct {
	SupplierName string `json:"supplier_name"`
	ProductClass string `json:"product_class"`
	AssessResult string `json:"assess_result"`
	RiskLevel    string `json:"risk_level"`
	DateFrom     string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo       string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

// Reassessment is the periodic re-grading of a qualified supplier from its
// evaluated purchases.
type Reassessment struct {
	ID           int64      `json:"id"`
	SupplierName string     `json:"supplier_name"`
	ProductClass string     `json:"product_class"`
	AssessDate   *time.Time `json:"assess_date,omitempty"`
	Grade        float64    `json:"grade"`
	TotalOrders  int        `json:"total_orders"`
	AssessResult string     `json:"assess_result"`
	CreatedBy    string     `json:"created_by"`
}

// ReassessRequest grades every qualified supplier on the purchases evaluated
// between PeriodStart and PeriodEnd and records the outcome on AssessDate.
type ReassessRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
	AssessDate  string `json:"assess_date" validate:"required,datetime=2006-01-02"`
}

// ReassessCandidate is one supplier's standing over a reassessment period.
type ReassessCandidate struct {
	SupplierName       string  `json:"supplier_name"`
	ProductClass       string  `json:"product_class"`
	RiskLevel          string  `json:"risk_level"`
	TotalOrders        int     `json:"total_orders"`
	TotalOrdersLatest3 int     `json:"total_orders_latest3"`
	AvgGrade           float64 `json:"avg_grade"`
	AssessResult       string  `json:"assess_result"`
	Recorded           bool    `json:"recorded"`
}

type ReassessmentQuery struct {
	SupplierName string `json:"supplier_name"`
	ProductClass string `json:"product_class"`
	AssessResult string `json:"assess_result"`
	DateFrom     string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo       string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

package domain

import "time"

const (
	ReceiptReceived = "received"
	ReceiptReturned = "returned"
)

// Purchase evaluation weights. Grade is the sum of the five selections.
var (
	PriceScores    = []int{10, 5, 0}
	SpecScores     = []int{25, 15, 0}
	DeliveryScores = []int{10, 0}
	ServiceScores  = []int{15, 10, 5, 0}
	QualityScores  = []int{40, 10, 5, 0}
)

// QualifiedGrade is the lowest evaluation grade that counts as qualified.
const QualifiedGrade = 70

// PurchaseRecord follows one purchase request from request through goods
// acceptance to supplier evaluation. RequestNo is a claim number of the
// purchase request form.
type PurchaseRecord struct {
	RequestNo          string     `json:"request_no"`
	RequestDate        *time.Time `json:"request_date,omitempty"`
	Requester          string     `json:"requester"`
	Purchaser          string     `json:"purchaser"`
	ProductClass       string     `json:"product_class"`
	ProductClassTitle  string     `json:"product_class_title"`
	SupplierClass      string     `json:"supplier_class"`
	SupplierName       string     `json:"supplier_name"`
	ProductName        string     `json:"product_name"`
	ProductSpec        string     `json:"product_spec"`
	ProductNumber      string     `json:"product_number"`
	ProductUnit        string     `json:"product_unit"`
	ProductPrice       *float64   `json:"product_price,omitempty"`
	KeepTime           string     `json:"keep_time"`
	QualityAgreement   *bool      `json:"quality_agreement,omitempty"`
	QualityAgreementNo string     `json:"quality_agreement_no"`
	ChangeNotification *bool      `json:"change_notification,omitempty"`
	ChangeNotifyNo     string     `json:"change_notification_no"`
	FirstAssessDate    *time.Time `json:"supplier_1st_assess_date,omitempty"`
	Remarks            string     `json:"remarks"`

	DeliveryDate  *time.Time `json:"delivery_date,omitempty"`
	VerifyDate    *time.Time `json:"verify_date,omitempty"`
	ReceivePerson string     `json:"receive_person"`
	VerifyPerson  string     `json:"verify_person"`
	ReceiveNumber string     `json:"receive_number"`
	ReceiptStatus string     `json:"receipt_status"`

	PriceSelect    *int       `json:"price_select,omitempty"`
	SpecSelect     *int       `json:"spec_select,omitempty"`
	DeliverySelect *int       `json:"delivery_select,omitempty"`
	ServiceSelect  *int       `json:"service_select,omitempty"`
	QualitySelect  *int       `json:"quality_select,omitempty"`
	Grade          *int       `json:"grade,omitempty"`
	AssessResult   string     `json:"assess_result"`
	AssessPerson   string     `json:"assess_person"`
	AssessDate     *time.Time `json:"assess_date,omitempty"`
	AssessmentNo   string     `json:"assessment_no"`

	CreatedAt time.Time `json:"created_at"`
}

// Verified reports whether goods acceptance has been recorded.
func (p *PurchaseRecord) Verified() bool {
	return p.ReceiptStatus == ReceiptReceived && p.VerifyDate != nil
}

type PurchaseRequest struct {
	RequestNo          string   `json:"request_no" validate:"required,max=20"`
	RequestDate        string   `json:"request_date" validate:"required,datetime=2006-01-02"`
	Requester          string   `json:"requester"`
	Purchaser          string   `json:"purchaser" validate:"required,max=50"`
	ProductClass       string   `json:"product_class" validate:"required,max=50"`
	SupplierName       string   `json:"supplier_name" validate:"required,max=100"`
	ProductName        string   `json:"product_name" validate:"required,max=200"`
	ProductSpec        string   `json:"product_spec" validate:"max=200"`
	ProductNumber      string   `json:"product_number" validate:"max=50"`
	ProductUnit        string   `json:"product_unit" validate:"max=20"`
	ProductPrice       *float64 `json:"product_price" validate:"omitempty,gte=0"`
	KeepTime           string   `json:"keep_time" validate:"max=50"`
	QualityAgreement   *bool    `json:"quality_agreement"`
	QualityAgreementNo string   `json:"quality_agreement_no" validate:"max=50"`
	ChangeNotification *bool    `json:"change_notification"`
	ChangeNotifyNo     string   `json:"change_notification_no" validate:"max=50"`
	Remarks            string   `json:"remarks" validate:"max=500"`
}

// AcceptanceRequest records goods receipt. ReceiveNumber is a claim number
// of the acceptance form.
type AcceptanceRequest struct {
	ReceivePerson string `json:"receive_person" validate:"required,max=50"`
	DeliveryDate  string `json:"delivery_date" validate:"required,datetime=2006-01-02"`
	VerifyPerson  string `json:"verify_person" validate:"required,max=50"`
	VerifyDate    string `json:"verify_date" validate:"required,datetime=2006-01-02"`
	ReceiveNumber string `json:"receive_number" validate:"required,max=20"`
}

type EvaluationRequest struct {
	PriceSelect    *int   `json:"price_select" validate:"required"`
	SpecSelect     *int   `json:"spec_select" validate:"required"`
	DeliverySelect *int   `json:"delivery_select" validate:"required"`
	ServiceSelect  *int   `json:"service_select" validate:"required"`
	QualitySelect  *int   `json:"quality_select" validate:"required"`
	AssessmentNo   string `json:"assessment_no" validate:"required,max=20"`
}

type PurchaseQuery struct {
	RequestNo     string `json:"request_no"`
	Requester     string `json:"requester"`
	SupplierName  string `json:"supplier_name"`
	ProductClass  string `json:"product_class"`
	ProductName   string `json:"product_name"`
	ReceiptStatus string `json:"receipt_status" validate:"omitempty,oneof=received returned pending"`
	AssessResult  string `json:"assess_result"`
	DateFrom      string `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Pagination
}

type PurchaseEvent struct {
	RequestNo string `json:"request_no"`
	Action    string `json:"action"`
	By        string `json:"by"`
}

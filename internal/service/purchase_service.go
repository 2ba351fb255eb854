package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/pkg/sanitize"

	"go.uber.org/zap"
)

var purchaseSortColumns = map[string]string{
	"request_no":     "request_no",
	"request_date":   "request_date",
	"requester":      "requester",
	"supplier_name":  "supplier_name",
	"product_class":  "product_class",
	"product_name":   "product_name",
	"delivery_date":  "delivery_date",
	"verify_date":    "verify_date",
	"receipt_status": "receipt_status",
	"grade":          "grade",
	"assess_date":    "assess_date",
}

// PurchaseForms names the issued forms whose claim numbers identify purchase
// requests and goods acceptances.
type PurchaseForms struct {
	Request    string
	Acceptance string
}

type PurchaseService struct {
	purchases repository.PurchaseRepository
	suppliers repository.SupplierRepository
	claims    repository.ClaimRepository
	forms     PurchaseForms
	events    EventPublisher
	logger    *zap.Logger
	pageSize  int
	now       func() time.Time
}

func NewPurchaseService(
	purchases repository.PurchaseRepository,
	suppliers repository.SupplierRepository,
	claims repository.ClaimRepository,
	forms PurchaseForms,
	events EventPublisher,
	logger *zap.Logger,
	pageSize int,
) *PurchaseService {
	return &PurchaseService{
		purchases: purchases,
		suppliers: suppliers,
		claims:    claims,
		forms:     forms,
		events:    publisherOrNop(events),
		logger:    logger,
		pageSize:  pageSize,
		now:       time.Now,
	}
}

func (s *PurchaseService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// openClaimOf reports whether number is a claim of formNo that is neither
// stored nor cancelled.
func (s *PurchaseService) openClaimOf(ctx context.Context, number, formNo string) (bool, error) {
	rec, err := s.claims.Get(ctx, number)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.OriginalDocNo == formNo && rec.Open(), nil
}

func canChange(actor domain.Actor, p *domain.PurchaseRecord) bool {
	return actor.IsManager() || p.Requester == actor.UserID
}

// fill copies the request onto p and completes the supplier fields from the
// qualified supplier list.
func (s *PurchaseService) fill(ctx context.Context, p *domain.PurchaseRecord, req *domain.PurchaseRequest, verr *ValidationError) error {
	requestDate, err := parseDate(req.RequestDate)
	if err != nil {
		verr.Add("request_date must be a date (YYYY-MM-DD)")
	} else {
		p.RequestDate = &requestDate
	}

	supplier, err := s.suppliers.Get(ctx, req.SupplierName, req.ProductClass)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		verr.Add("supplier is not qualified for this product class")
	case err != nil:
		return err
	default:
		p.ProductClassTitle = supplier.Title
		p.SupplierClass = supplier.SupplierClass
		p.FirstAssessDate = supplier.FirstAssessDate
	}

	p.Purchaser = req.Purchaser
	p.ProductClass = req.ProductClass
	p.SupplierName = req.SupplierName
	p.ProductName = req.ProductName
	p.ProductSpec = req.ProductSpec
	p.ProductNumber = req.ProductNumber
	p.ProductUnit = req.ProductUnit
	p.ProductPrice = req.ProductPrice
	p.KeepTime = req.KeepTime
	p.QualityAgreement = req.QualityAgreement
	p.QualityAgreementNo = req.QualityAgreementNo
	p.ChangeNotification = req.ChangeNotification
	p.ChangeNotifyNo = req.ChangeNotifyNo
	p.Remarks = req.Remarks
	return nil
}

func sanitizePurchase(req *domain.PurchaseRequest) {
	sanitize.Fields(&req.RequestNo, &req.RequestDate, &req.Requester, &req.Purchaser, &req.ProductClass,
		&req.SupplierName, &req.ProductName, &req.ProductSpec, &req.ProductNumber, &req.ProductUnit,
		&req.KeepTime, &req.QualityAgreementNo, &req.ChangeNotifyNo)
	req.Remarks = sanitize.Text(req.Remarks)
	req.RequestNo = strings.ToUpper(req.RequestNo)
}

// Create registers a purchase request. The request number must be an open
// claim of the purchase request form. Only managers may file on behalf of
// someone else.
func (s *PurchaseService) Create(ctx context.Context, actor domain.Actor, req *domain.PurchaseRequest) (*domain.PurchaseRecord, error) {
	sanitizePurchase(req)

	p := &domain.PurchaseRecord{
		RequestNo: req.RequestNo,
		Requester: actor.UserID,
		CreatedAt: s.now().UTC(),
	}
	if req.Requester != "" && req.Requester != actor.UserID {
		if !actor.IsManager() {
			return nil, ErrForbidden
		}
		p.Requester = req.Requester
	}

	verr := &ValidationError{}
	ok, err := s.openClaimOf(ctx, req.RequestNo, s.forms.Request)
	if err != nil {
		return nil, err
	}
	if !ok {
		verr.Add(fmt.Sprintf("request_no must be an open claim of %s", s.forms.Request))
	}
	if err := s.fill(ctx, p, req, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.purchases.Create(ctx, p); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("purchase requested",
		zap.String("request_no", p.RequestNo),
		zap.String("supplier", p.SupplierName),
		zap.String("by", actor.UserID),
	)
	s.publish(p, "requested", actor)
	return p, nil
}

func (s *PurchaseService) Get(ctx context.Context, requestNo string) (*domain.PurchaseRecord, error) {
	p, err := s.purchases.Get(ctx, strings.ToUpper(strings.TrimSpace(requestNo)))
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return p, nil
}

// Edit rewrites the request part of a purchase. The requester and managers
// may edit; the request number stays fixed.
func (s *PurchaseService) Edit(ctx context.Context, actor domain.Actor, requestNo string, req *domain.PurchaseRequest) (*domain.PurchaseRecord, error) {
	sanitizePurchase(req)

	p, err := s.Get(ctx, requestNo)
	if err != nil {
		return nil, err
	}
	if !canChange(actor, p) {
		return nil, ErrForbidden
	}
	if req.Requester != "" && req.Requester != p.Requester {
		if !actor.IsManager() {
			return nil, ErrForbidden
		}
		p.Requester = req.Requester
	}

	verr := &ValidationError{}
	if err := s.fill(ctx, p, req, verr); err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if err := s.purchases.Update(ctx, p); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("purchase edited", zap.String("request_no", p.RequestNo), zap.String("by", actor.UserID))
	s.publish(p, "edited", actor)
	return p, nil
}

func (s *PurchaseService) Delete(ctx context.Context, actor domain.Actor, requestNo string) error {
	p, err := s.Get(ctx, requestNo)
	if err != nil {
		return err
	}
	if !canChange(actor, p) {
		return ErrForbidden
	}

	if err := s.purchases.Delete(ctx, p.RequestNo); err != nil {
		return mapRepoErr(err)
	}

	s.logger.Info("purchase deleted", zap.String("request_no", p.RequestNo), zap.String("by", actor.UserID))
	s.publish(p, "deleted", actor)
	return nil
}

// Accept records goods receipt. The receive number must be an open claim of
// the acceptance form not already used by another purchase.
func (s *PurchaseService) Accept(ctx context.Context, actor domain.Actor, requestNo string, req *domain.AcceptanceRequest) (*domain.PurchaseRecord, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.ReceivePerson, &req.DeliveryDate, &req.VerifyPerson, &req.VerifyDate, &req.ReceiveNumber)
	req.ReceiveNumber = strings.ToUpper(req.ReceiveNumber)

	p, err := s.Get(ctx, requestNo)
	if err != nil {
		return nil, err
	}

	verr := &ValidationError{}
	delivery, derr := parseDate(req.DeliveryDate)
	if derr != nil {
		verr.Add("delivery_date must be a date (YYYY-MM-DD)")
	}
	verify, verifyErr := parseDate(req.VerifyDate)
	if verifyErr != nil {
		verr.Add("verify_date must be a date (YYYY-MM-DD)")
	}
	if derr == nil && verifyErr == nil && verify.Before(delivery) {
		verr.Add("verify_date cannot be before delivery_date")
	}

	ok, err := s.openClaimOf(ctx, req.ReceiveNumber, s.forms.Acceptance)
	if err != nil {
		return nil, err
	}
	if !ok {
		verr.Add(fmt.Sprintf("receive_number must be an open claim of %s", s.forms.Acceptance))
	} else {
		used, err := s.purchases.ReceiveNumberUsed(ctx, req.ReceiveNumber, p.RequestNo)
		if err != nil {
			return nil, err
		}
		if used {
			verr.Add("receive_number is already used by another purchase")
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	p.ReceivePerson = req.ReceivePerson
	p.DeliveryDate = &delivery
	p.VerifyPerson = req.VerifyPerson
	p.VerifyDate = &verify
	p.ReceiveNumber = req.ReceiveNumber
	p.ReceiptStatus = domain.ReceiptReceived
	if err := s.purchases.UpdateAcceptance(ctx, p); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("goods accepted",
		zap.String("request_no", p.RequestNo),
		zap.String("receive_number", p.ReceiveNumber),
		zap.String("by", actor.UserID),
	)
	s.publish(p, "accepted", actor)
	return p, nil
}

// Return clears the receipt and marks the goods returned. Evaluated
// purchases cannot be returned.
func (s *PurchaseService) Return(ctx context.Context, actor domain.Actor, requestNo string) (*domain.PurchaseRecord, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}

	p, err := s.Get(ctx, requestNo)
	if err != nil {
		return nil, err
	}
	if p.Grade != nil {
		return nil, &ValidationError{Messages: []string{"evaluated purchases cannot be returned"}}
	}

	p.ReceivePerson = ""
	p.DeliveryDate = nil
	p.VerifyPerson = ""
	p.VerifyDate = nil
	p.ReceiveNumber = ""
	p.ReceiptStatus = domain.ReceiptReturned
	if err := s.purchases.UpdateAcceptance(ctx, p); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("goods returned", zap.String("request_no", p.RequestNo), zap.String("by", actor.UserID))
	s.publish(p, "returned", actor)
	return p, nil
}

func checkScore(verr *ValidationError, field string, v *int, allowed []int) int {
	if v == nil || !slices.Contains(allowed, *v) {
		verr.Add(fmt.Sprintf("%s must be one of %v", field, allowed))
		return 0
	}
	return *v
}

// Evaluate grades the supplier on an accepted purchase. The grade is the
// sum of the five scores; 70 or more is qualified.
func (s *PurchaseService) Evaluate(ctx context.Context, actor domain.Actor, requestNo string, req *domain.EvaluationRequest) (*domain.PurchaseRecord, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.AssessmentNo)

	p, err := s.Get(ctx, requestNo)
	if err != nil {
		return nil, err
	}
	if !p.Verified() {
		return nil, ErrNotVerified
	}

	verr := &ValidationError{}
	grade := checkScore(verr, "price_select", req.PriceSelect, domain.PriceScores) +
		checkScore(verr, "spec_select", req.SpecSelect, domain.SpecScores) +
		checkScore(verr, "delivery_select", req.DeliverySelect, domain.DeliveryScores) +
		checkScore(verr, "service_select", req.ServiceSelect, domain.ServiceScores) +
		checkScore(verr, "quality_select", req.QualitySelect, domain.QualityScores)
	if err := verr.Err(); err != nil {
		return nil, err
	}

	today := s.today()
	p.PriceSelect = req.PriceSelect
	p.SpecSelect = req.SpecSelect
	p.DeliverySelect = req.DeliverySelect
	p.ServiceSelect = req.ServiceSelect
	p.QualitySelect = req.QualitySelect
	p.Grade = &grade
	p.AssessResult = domain.AssessUnqualified
	if grade >= domain.QualifiedGrade {
		p.AssessResult = domain.AssessQualified
	}
	p.AssessPerson = actor.UserID
	p.AssessDate = &today
	p.AssessmentNo = req.AssessmentNo
	if err := s.purchases.UpdateEvaluation(ctx, p); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("purchase evaluated",
		zap.String("request_no", p.RequestNo),
		zap.Int("grade", grade),
		zap.String("by", actor.UserID),
	)
	s.publish(p, "evaluated", actor)
	return p, nil
}

func (s *PurchaseService) List(ctx context.Context, q *domain.PurchaseQuery) (*database.Page[*domain.PurchaseRecord], error) {
	sanitize.Fields(&q.RequestNo, &q.Requester, &q.SupplierName, &q.ProductClass, &q.ProductName,
		&q.ReceiptStatus, &q.AssessResult, &q.DateFrom, &q.DateTo)
	q.Normalize(s.pageSize, "request_date", "desc")

	where := database.NewWhere().
		Like("request_no", strings.ToUpper(q.RequestNo)).
		Eq("requester", q.Requester).
		Like("supplier_name", q.SupplierName).
		Like("product_class", q.ProductClass).
		Like("product_name", q.ProductName).
		Eq("assess_result", q.AssessResult).
		Gte("request_date", q.DateFrom).
		Lte("request_date", q.DateTo)
	if q.ReceiptStatus == "pending" {
		where.Raw("receipt_status IS NULL")
	} else {
		where.Eq("receipt_status", q.ReceiptStatus)
	}
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, purchaseSortColumns, "request_date")

	return s.purchases.List(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

func (s *PurchaseService) publish(p *domain.PurchaseRecord, action string, actor domain.Actor) {
	s.events.Publish(domain.EventPurchaseChanged, domain.PurchaseEvent{
		RequestNo: p.RequestNo,
		Action:    action,
		By:        actor.UserID,
	})
}

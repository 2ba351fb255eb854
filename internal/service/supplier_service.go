package service

import (
	"context"
	"errors"
	"math"

	"docctl-server/internal/database"
	"docctl-server/internal/domain"
	"docctl-server/internal/repository"
	"docctl-server/pkg/sanitize"

	"go.uber.org/zap"
)

var productClassSortColumns = map[string]string{
	"product_class":       "product_class",
	"supplier_class":      "supplier_class",
	"product_class_title": "product_class_title",
}

var supplierSortColumns = map[string]string{
	"supplier_name":            "supplier_name",
	"product_class":            "product_class",
	"supplier_no":              "supplier_no",
	"supplier_class":           "supplier_class",
	"supplier_1st_assess_date": "supplier_1st_assess_date",
	"risk_level":               "risk_level",
	"reassess_date":            "reassess_date",
	"reassess_result":          "reassess_result",
}

var assessmentSortColumns = map[string]string{
	"supplier_name": "supplier_name",
	"product_class": "product_class",
	"assess_date":   "assess_date",
	"assess_result": "assess_result",
	"risk_level":    "risk_level",
}

var reassessmentSortColumns = map[string]string{
	"supplier_name": "supplier_name",
	"product_class": "product_class",
	"assess_date":   "assess_date",
	"grade":         "grade",
	"total_orders":  "total_orders",
	"assess_result": "assess_result",
}

// reassessHistoryYears is how far back a supplier must have evaluated
// purchases to stay on the qualified list.
const reassessHistoryYears = 3

type SupplierService struct {
	repo     repository.SupplierRepository
	events   EventPublisher
	logger   *zap.Logger
	pageSize int
}

func NewSupplierService(repo repository.SupplierRepository, events EventPublisher, logger *zap.Logger, pageSize int) *SupplierService {
	return &SupplierService{
		repo:     repo,
		events:   publisherOrNop(events),
		logger:   logger,
		pageSize: pageSize,
	}
}

func (s *SupplierService) ListClasses(ctx context.Context, q *domain.ProductClassQuery) (*database.Page[*domain.ProductClass], error) {
	sanitize.Fields(&q.ProductClass, &q.Title)
	q.Normalize(s.pageSize, "product_class", "asc")

	where := database.NewWhere().
		Like("product_class", q.ProductClass).
		Like("product_class_title", q.Title)
	if !q.IncludeDisabled {
		where.Raw("disabled = 0")
	}
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, productClassSortColumns, "product_class")

	return s.repo.ListClasses(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

func (s *SupplierService) CreateClass(ctx context.Context, actor domain.Actor, req *domain.ProductClassRequest) (*domain.ProductClass, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.ProductClass, &req.SupplierClass, &req.Title)

	pc := &domain.ProductClass{
		ProductClass:  req.ProductClass,
		SupplierClass: req.SupplierClass,
		Title:         req.Title,
		Disabled:      req.Disabled,
	}
	if err := s.repo.CreateClass(ctx, pc); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("product class created", zap.String("product_class", pc.ProductClass), zap.String("by", actor.UserID))
	return pc, nil
}

// EditClass updates a class in place. The class code itself is immutable.
func (s *SupplierService) EditClass(ctx context.Context, actor domain.Actor, code string, req *domain.ProductClassRequest) (*domain.ProductClass, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.SupplierClass, &req.Title)

	pc := &domain.ProductClass{
		ProductClass:  code,
		SupplierClass: req.SupplierClass,
		Title:         req.Title,
		Disabled:      req.Disabled,
	}
	if err := s.repo.UpdateClass(ctx, pc); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("product class edited",
		zap.String("product_class", code),
		zap.Bool("disabled", pc.Disabled),
		zap.String("by", actor.UserID),
	)
	return pc, nil
}

func (s *SupplierService) List(ctx context.Context, q *domain.SupplierQuery) (*database.Page[*domain.QualifiedSupplier], error) {
	sanitize.Fields(&q.SupplierName, &q.SupplierNo, &q.ProductClass, &q.SupplierClass, &q.ReassessResult)
	q.Normalize(s.pageSize, "supplier_name", "asc")

	where := database.NewWhere().
		Like("supplier_name", q.SupplierName).
		Like("supplier_no", q.SupplierNo).
		Like("product_class", q.ProductClass).
		Eq("supplier_class", q.SupplierClass).
		Eq("reassess_result", q.ReassessResult)
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, supplierSortColumns, "supplier_name")

	return s.repo.List(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

func (s *SupplierService) Get(ctx context.Context, supplierName, productClass string) (*domain.QualifiedSupplier, error) {
	q, err := s.repo.Get(ctx, supplierName, productClass)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return q, nil
}

// Edit changes the supplier's registration number.
func (s *SupplierService) Edit(ctx context.Context, actor domain.Actor, supplierName, productClass string, req *domain.EditSupplierRequest) (*domain.QualifiedSupplier, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.SupplierNo)

	if err := s.repo.UpdateSupplierNo(ctx, supplierName, productClass, req.SupplierNo); err != nil {
		return nil, mapRepoErr(err)
	}
	return s.Get(ctx, supplierName, productClass)
}

// Assess records a first assessment. The product class must exist and be
// enabled; a supplier not yet on the qualified list is added to it.
func (s *SupplierService) Assess(ctx context.Context, actor domain.Actor, req *domain.FirstAssessRequest) (*domain.SupplierAssessment, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.SupplierName, &req.SupplierNo, &req.ProductClass, &req.AssessDate, &req.ProductName,
		&req.ProductSpec, &req.AssessResult, &req.RiskLevel, &req.AssessPeople, &req.AssessNo)
	req.Visit = sanitize.Text(req.Visit)
	req.Reason = sanitize.Text(req.Reason)
	req.Improvement = sanitize.Text(req.Improvement)
	req.Remarks = sanitize.Text(req.Remarks)

	verr := &ValidationError{}
	assessDate, err := parseDate(req.AssessDate)
	if err != nil {
		verr.Add("assess_date must be a date (YYYY-MM-DD)")
	}
	if req.AssessResult == domain.AssessQualifiedAfterImprovement && req.Improvement == "" {
		verr.Add("improvement is required when the supplier qualifies after improvement")
	}

	pc, err := s.repo.GetClass(ctx, req.ProductClass)
	switch {
	case err == nil && pc.Disabled:
		verr.Add("product_class is disabled")
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		verr.Add("product_class does not exist")
	default:
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	a := &domain.SupplierAssessment{
		SupplierName: req.SupplierName,
		ProductClass: req.ProductClass,
		AssessDate:   &assessDate,
		ProductName:  req.ProductName,
		ProductSpec:  req.ProductSpec,
		Visit:        req.Visit,
		Reason:       req.Reason,
		AssessResult: req.AssessResult,
		Improvement:  req.Improvement,
		RiskLevel:    req.RiskLevel,
		Remarks:      req.Remarks,
		AssessPeople: req.AssessPeople,
		AssessNo:     req.AssessNo,
	}
	if err := s.repo.CreateAssessment(ctx, a, req.SupplierNo, pc.SupplierClass); err != nil {
		return nil, mapRepoErr(err)
	}

	s.logger.Info("supplier assessed",
		zap.String("supplier", a.SupplierName),
		zap.String("product_class", a.ProductClass),
		zap.String("result", a.AssessResult),
		zap.String("by", actor.UserID),
	)
	s.events.Publish(domain.EventSupplierChanged, domain.SupplierEvent{
		SupplierName: a.SupplierName,
		ProductClass: a.ProductClass,
		Result:       a.AssessResult,
		By:           actor.UserID,
	})
	return a, nil
}

func (s *SupplierService) ListAssessments(ctx context.Context, q *domain.AssessmentQuery) (*database.Page[*domain.SupplierAssessment], error) {
	sanitize.Fields(&q.SupplierName, &q.ProductClass, &q.AssessResult, &q.RiskLevel, &q.DateFrom, &q.DateTo)
	q.Normalize(s.pageSize, "assess_date", "desc")

	where := database.NewWhere().
		Like("supplier_name", q.SupplierName).
		Like("product_class", q.ProductClass).
		Eq("assess_result", q.AssessResult).
		Eq("risk_level", q.RiskLevel).
		Gte("assess_date", q.DateFrom).
		Lte("assess_date", q.DateTo)
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, assessmentSortColumns, "assess_date")

	return s.repo.ListAssessments(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

// passingGrade is the average evaluation grade a supplier of the given risk
// level needs to stay qualified.
func passingGrade(risk string) float64 {
	switch risk {
	case domain.RiskHigh:
		return 90
	case domain.RiskMedium:
		return 80
	default:
		return domain.QualifiedGrade
	}
}

// ReassessOutcome grades one candidate. Suppliers with no evaluated
// purchases in three years should be removed; those with none in the
// period are not graded.
func ReassessOutcome(c *domain.ReassessCandidate) string {
	switch {
	case c.TotalOrdersLatest3 == 0:
		return domain.ReassessRemove
	case c.TotalOrders == 0:
		return domain.ReassessNoOrders
	case c.AvgGrade >= passingGrade(c.RiskLevel):
		return domain.AssessQualified
	default:
		return domain.AssessUnqualified
	}
}

func (s *SupplierService) candidates(ctx context.Context, req *domain.ReassessRequest) ([]*domain.ReassessCandidate, error) {
	verr := &ValidationError{}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		verr.Add("period_start must be a date (YYYY-MM-DD)")
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		verr.Add("period_end must be a date (YYYY-MM-DD)")
	}
	if len(verr.Messages) == 0 && end.Before(start) {
		verr.Add("period_end cannot be before period_start")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	list, err := s.repo.Candidates(ctx, start, end, end.AddDate(-reassessHistoryYears, 0, 0))
	if err != nil {
		return nil, err
	}
	for _, c := range list {
		c.AvgGrade = math.Round(c.AvgGrade*100) / 100
		c.AssessResult = ReassessOutcome(c)
	}
	return list, nil
}

// PreviewReassessment grades every qualified supplier over the period
// without recording anything.
func (s *SupplierService) PreviewReassessment(ctx context.Context, req *domain.ReassessRequest) ([]*domain.ReassessCandidate, error) {
	sanitize.Fields(&req.PeriodStart, &req.PeriodEnd)
	return s.candidates(ctx, req)
}

// Reassess grades every qualified supplier over the period. Graded
// suppliers get their result and the new assessment date written back; a
// reassessment row is added only when none exists inside the period yet.
func (s *SupplierService) Reassess(ctx context.Context, actor domain.Actor, req *domain.ReassessRequest) ([]*domain.ReassessCandidate, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	sanitize.Fields(&req.PeriodStart, &req.PeriodEnd, &req.AssessDate)

	assessDate, err := parseDate(req.AssessDate)
	if err != nil {
		return nil, &ValidationError{Messages: []string{"assess_date must be a date (YYYY-MM-DD)"}}
	}
	list, err := s.candidates(ctx, req)
	if err != nil {
		return nil, err
	}

	recorded := 0
	for _, c := range list {
		if c.AssessResult != domain.AssessQualified && c.AssessResult != domain.AssessUnqualified {
			continue
		}

		re := &domain.Reassessment{
			SupplierName: c.SupplierName,
			ProductClass: c.ProductClass,
			AssessDate:   &assessDate,
			Grade:        c.AvgGrade,
			TotalOrders:  c.TotalOrders,
			AssessResult: c.AssessResult,
			CreatedBy:    actor.UserID,
		}
		if err := s.repo.RecordReassessment(ctx, re, !c.Recorded); err != nil {
			return nil, mapRepoErr(err)
		}
		if !c.Recorded {
			recorded++
		}
		c.Recorded = true
	}

	s.logger.Info("suppliers reassessed",
		zap.String("period_start", req.PeriodStart),
		zap.String("period_end", req.PeriodEnd),
		zap.Int("recorded", recorded),
		zap.String("by", actor.UserID),
	)
	if recorded > 0 {
		s.events.Publish(domain.EventSupplierChanged, domain.SupplierEvent{Result: "reassessed", By: actor.UserID})
	}
	return list, nil
}

func (s *SupplierService) ListReassessments(ctx context.Context, q *domain.ReassessmentQuery) (*database.Page[*domain.Reassessment], error) {
	sanitize.Fields(&q.SupplierName, &q.ProductClass, &q.AssessResult, &q.DateFrom, &q.DateTo)
	q.Normalize(s.pageSize, "assess_date", "desc")

	where := database.NewWhere().
		Like("supplier_name", q.SupplierName).
		Like("product_class", q.ProductClass).
		Eq("assess_result", q.AssessResult).
		Gte("assess_date", q.DateFrom).
		Lte("assess_date", q.DateTo)
	orderBy := database.OrderBy(q.OrderBy, q.SortDir, reassessmentSortColumns, "assess_date")

	return s.repo.ListReassessments(ctx, where, orderBy, q.PageNumber, q.PageSize)
}

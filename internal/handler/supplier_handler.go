package handler

import (
	"net/http"

	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"
	"docctl-server/internal/service"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SupplierHandler serves product classes, the qualified supplier list and
// supplier assessments.
type SupplierHandler struct {
	supplierService *service.SupplierService
	queryService    *service.QueryStateService
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewSupplierHandler(supplierService *service.SupplierService, queryService *service.QueryStateService, v *validator.Validate, logger *zap.Logger) *SupplierHandler {
	return &SupplierHandler{
		supplierService: supplierService,
		queryService:    queryService,
		validator:       v,
		logger:          logger,
	}
}

// ClearQuery forgets the saved filter of one supplier list.
func (h *SupplierHandler) ClearQuery(pageKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.queryService.Clear(r.Context(), middleware.GetUserID(r), pageKey); err != nil {
			writeError(w, h.logger, err)
			return
		}
		response.NoContent(w)
	}
}

// loadQuery restores the saved filter for pageKey and applies paging from
// the query string.
func (h *SupplierHandler) loadQuery(r *http.Request, pageKey string, q any, p *domain.Pagination) {
	h.queryService.Load(r.Context(), middleware.GetUserID(r), pageKey, q)
	paginationFromQuery(r, p)
}

// saveQuery decodes, validates and remembers a posted filter.
func (h *SupplierHandler) saveQuery(w http.ResponseWriter, r *http.Request, pageKey string, q any, p *domain.Pagination) bool {
	if !decodeJSON(w, r, q) || !validate(w, h.validator, q) {
		return false
	}
	if err := h.queryService.Save(r.Context(), middleware.GetUserID(r), pageKey, q, p); err != nil {
		h.logger.Warn("failed to save supplier query", zap.String("page", pageKey), zap.Error(err))
	}
	return true
}

func (h *SupplierHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	var q domain.ProductClassQuery
	h.loadQuery(r, domain.PageProductClasses, &q, &q.Pagination)
	h.listClasses(w, r, &q)
}

func (h *SupplierHandler) QueryClasses(w http.ResponseWriter, r *http.Request) {
	var q domain.ProductClassQuery
	if h.saveQuery(w, r, domain.PageProductClasses, &q, &q.Pagination) {
		h.listClasses(w, r, &q)
	}
}

func (h *SupplierHandler) listClasses(w http.ResponseWriter, r *http.Request, q *domain.ProductClassQuery) {
	page, err := h.supplierService.ListClasses(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *SupplierHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductClassRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	pc, err := h.supplierService.CreateClass(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, pc)
}

func (h *SupplierHandler) EditClass(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductClassRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProductClass = mux.Vars(r)["code"]
	if !validate(w, h.validator, req) {
		return
	}

	pc, err := h.supplierService.EditClass(r.Context(), middleware.GetActor(r), req.ProductClass, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, pc)
}

func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	var q domain.SupplierQuery
	h.loadQuery(r, domain.PageSuppliers, &q, &q.Pagination)
	h.list(w, r, &q)
}

func (h *SupplierHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.SupplierQuery
	if h.saveQuery(w, r, domain.PageSuppliers, &q, &q.Pagination) {
		h.list(w, r, &q)
	}
}

func (h *SupplierHandler) list(w http.ResponseWriter, r *http.Request, q *domain.SupplierQuery) {
	page, err := h.supplierService.List(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	supplier, err := h.supplierService.Get(r.Context(), vars["name"], vars["class"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, supplier)
}

func (h *SupplierHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.EditSupplierRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	vars := mux.Vars(r)
	supplier, err := h.supplierService.Edit(r.Context(), middleware.GetActor(r), vars["name"], vars["class"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, supplier)
}

func (h *SupplierHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	var q domain.AssessmentQuery
	h.loadQuery(r, domain.PageSupplierAssess, &q, &q.Pagination)
	h.listAssessments(w, r, &q)
}

func (h *SupplierHandler) QueryAssessments(w http.ResponseWriter, r *http.Request) {
	var q domain.AssessmentQuery
	if h.saveQuery(w, r, domain.PageSupplierAssess, &q, &q.Pagination) {
		h.listAssessments(w, r, &q)
	}
}

func (h *SupplierHandler) listAssessments(w http.ResponseWriter, r *http.Request, q *domain.AssessmentQuery) {
	page, err := h.supplierService.ListAssessments(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *SupplierHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req domain.FirstAssessRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	a, err := h.supplierService.Assess(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, a)
}

func (h *SupplierHandler) ListReassessments(w http.ResponseWriter, r *http.Request) {
	var q domain.ReassessmentQuery
	h.loadQuery(r, domain.PageReassessments, &q, &q.Pagination)
	h.listReassessments(w, r, &q)
}

func (h *SupplierHandler) QueryReassessments(w http.ResponseWriter, r *http.Request) {
	var q domain.ReassessmentQuery
	if h.saveQuery(w, r, domain.PageReassessments, &q, &q.Pagination) {
		h.listReassessments(w, r, &q)
	}
}

func (h *SupplierHandler) listReassessments(w http.ResponseWriter, r *http.Request, q *domain.ReassessmentQuery) {
	page, err := h.supplierService.ListReassessments(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

// PreviewReassessment grades suppliers over a period without saving.
func (h *SupplierHandler) PreviewReassessment(w http.ResponseWriter, r *http.Request) {
	var req domain.ReassessRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	list, err := h.supplierService.PreviewReassessment(r.Context(), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, list)
}

func (h *SupplierHandler) Reassess(w http.ResponseWriter, r *http.Request) {
	var req domain.ReassessRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	list, err := h.supplierService.Reassess(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, list)
}

package handler

import (
	"net/http"
	"strings"

	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"
	"docctl-server/internal/service"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type PurchaseHandler struct {
	purchaseService *service.PurchaseService
	queryService    *service.QueryStateService
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewPurchaseHandler(purchaseService *service.PurchaseService, queryService *service.QueryStateService, v *validator.Validate, logger *zap.Logger) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
		queryService:    queryService,
		validator:       v,
		logger:          logger,
	}
}

func requestNo(r *http.Request) string {
	return strings.ToUpper(mux.Vars(r)["requestNo"])
}

func (h *PurchaseHandler) List(w http.ResponseWriter, r *http.Request) {
	var q domain.PurchaseQuery
	h.queryService.Load(r.Context(), middleware.GetUserID(r), domain.PagePurchases, &q)
	paginationFromQuery(r, &q.Pagination)
	h.list(w, r, &q)
}

func (h *PurchaseHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.PurchaseQuery
	if !decodeJSON(w, r, &q) || !validate(w, h.validator, q) {
		return
	}

	if err := h.queryService.Save(r.Context(), middleware.GetUserID(r), domain.PagePurchases, &q, &q.Pagination); err != nil {
		h.logger.Warn("failed to save purchase query", zap.Error(err))
	}
	h.list(w, r, &q)
}

func (h *PurchaseHandler) ClearQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.queryService.Clear(r.Context(), middleware.GetUserID(r), domain.PagePurchases); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *PurchaseHandler) list(w http.ResponseWriter, r *http.Request, q *domain.PurchaseQuery) {
	page, err := h.purchaseService.List(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.purchaseService.Get(r.Context(), requestNo(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, p)
}

func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	p, err := h.purchaseService.Create(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, p)
}

func (h *PurchaseHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.PurchaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RequestNo = requestNo(r)
	if !validate(w, h.validator, req) {
		return
	}

	p, err := h.purchaseService.Edit(r.Context(), middleware.GetActor(r), req.RequestNo, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, p)
}

func (h *PurchaseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.purchaseService.Delete(r.Context(), middleware.GetActor(r), requestNo(r)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

// Accept records goods receipt and verification against the acceptance form.
func (h *PurchaseHandler) Accept(w http.ResponseWriter, r *http.Request) {
	var req domain.AcceptanceRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	p, err := h.purchaseService.Accept(r.Context(), middleware.GetActor(r), requestNo(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, p)
}

func (h *PurchaseHandler) Return(w http.ResponseWriter, r *http.Request) {
	p, err := h.purchaseService.Return(r.Context(), middleware.GetActor(r), requestNo(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, p)
}

func (h *PurchaseHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req domain.EvaluationRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	p, err := h.purchaseService.Evaluate(r.Context(), middleware.GetActor(r), requestNo(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, p)
}

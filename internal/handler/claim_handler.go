package handler

import (
	"net/http"
	"strconv"
	"strings"

	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"
	"docctl-server/internal/service"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ClaimHandler struct {
	claimService *service.ClaimService
	queryService *service.QueryStateService
	validator    *validator.Validate
	logger       *zap.Logger
}

func NewClaimHandler(claimService *service.ClaimService, queryService *service.QueryStateService, v *validator.Validate, logger *zap.Logger) *ClaimHandler {
	return &ClaimHandler{
		claimService: claimService,
		queryService: queryService,
		validator:    v,
		logger:       logger,
	}
}

func (h *ClaimHandler) List(w http.ResponseWriter, r *http.Request) {
	var q domain.ClaimQuery
	h.queryService.Load(r.Context(), middleware.GetUserID(r), domain.PageClaims, &q)
	paginationFromQuery(r, &q.Pagination)
	h.list(w, r, &q)
}

func (h *ClaimHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.ClaimQuery
	if !decodeJSON(w, r, &q) || !validate(w, h.validator, q) {
		return
	}

	if err := h.queryService.Save(r.Context(), middleware.GetUserID(r), domain.PageClaims, &q, &q.Pagination); err != nil {
		h.logger.Warn("failed to save claim query", zap.Error(err))
	}
	h.list(w, r, &q)
}

func (h *ClaimHandler) ClearQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.queryService.Clear(r.Context(), middleware.GetUserID(r), domain.PageClaims); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *ClaimHandler) list(w http.ResponseWriter, r *http.Request, q *domain.ClaimQuery) {
	page, err := h.claimService.List(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *ClaimHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.claimService.Get(r.Context(), mux.Vars(r)["idNo"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rec)
}

// NextNumber previews the number a claim would get without reserving it.
func (h *ClaimHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reserve, _ := strconv.ParseBool(q.Get("reserve"))

	next, err := h.claimService.PreviewNumber(r.Context(), middleware.GetActor(r),
		strings.ToUpper(strings.TrimSpace(q.Get("type"))), q.Get("date"), reserve)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, next)
}

func (h *ClaimHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req domain.ClaimRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	rec, err := h.claimService.Claim(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, rec)
}

func (h *ClaimHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelClaimRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	rec, err := h.claimService.Cancel(r.Context(), middleware.GetActor(r), mux.Vars(r)["idNo"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rec)
}

func (h *ClaimHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req domain.EditClaimRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	rec, err := h.claimService.Edit(r.Context(), middleware.GetActor(r), mux.Vars(r)["idNo"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rec)
}

// StockIn stores or un-stores a single claim.
func (h *ClaimHandler) StockIn(w http.ResponseWriter, r *http.Request) {
	var req domain.StockInRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	rec, err := h.claimService.StockIn(r.Context(), middleware.GetActor(r), mux.Vars(r)["idNo"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, rec)
}

func (h *ClaimHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req domain.StoreRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	result, err := h.claimService.Store(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, result)
}

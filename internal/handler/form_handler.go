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

type FormHandler struct {
	formService  *service.FormIssueService
	queryService *service.QueryStateService
	validator    *validator.Validate
	logger       *zap.Logger
}

func NewFormHandler(formService *service.FormIssueService, queryService *service.QueryStateService, v *validator.Validate, logger *zap.Logger) *FormHandler {
	return &FormHandler{
		formService:  formService,
		queryService: queryService,
		validator:    v,
		logger:       logger,
	}
}

// List runs the caller's saved form filter; only paging may be overridden
// from the query string.
func (h *FormHandler) List(w http.ResponseWriter, r *http.Request) {
	var q domain.FormQuery
	h.queryService.Load(r.Context(), middleware.GetUserID(r), domain.PageForms, &q)
	paginationFromQuery(r, &q.Pagination)
	h.list(w, r, &q)
}

// Query saves a new filter and returns its first page.
func (h *FormHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.FormQuery
	if !decodeJSON(w, r, &q) || !validate(w, h.validator, q) {
		return
	}

	if err := h.queryService.Save(r.Context(), middleware.GetUserID(r), domain.PageForms, &q, &q.Pagination); err != nil {
		h.logger.Warn("failed to save form query", zap.Error(err))
	}
	h.list(w, r, &q)
}

func (h *FormHandler) ClearQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.queryService.Clear(r.Context(), middleware.GetUserID(r), domain.PageForms); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *FormHandler) list(w http.ResponseWriter, r *http.Request, q *domain.FormQuery) {
	page, err := h.formService.List(r.Context(), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *FormHandler) Get(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	form, err := h.formService.Get(r.Context(), vars["docNo"], vars["docVer"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, form)
}

func (h *FormHandler) Prepare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	choice, err := h.formService.PrepareNewVersion(r.Context(), q.Get("original_doc_no"), q.Get("doc_ver"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, choice)
}

func (h *FormHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var req domain.IssueFormRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	form, err := h.formService.Issue(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Created(w, form)
}

func (h *FormHandler) Edit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req domain.EditFormRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	form, err := h.formService.Edit(r.Context(), middleware.GetActor(r), vars["docNo"], vars["docVer"], &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, form)
}

func (h *FormHandler) Delete(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.formService.Delete(r.Context(), middleware.GetActor(r), vars["docNo"], vars["docVer"]); err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Message(w, "Form version deleted", nil)
}

func (h *FormHandler) History(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var p domain.Pagination
	paginationFromQuery(r, &p)

	page, err := h.formService.History(r.Context(), vars["docNo"], vars["docVer"], p)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, page)
}

func (h *FormHandler) Versions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.formService.Versions(r.Context(), mux.Vars(r)["docNo"])
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, versions)
}

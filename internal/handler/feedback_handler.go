package handler

import (
	"net/http"
	"strconv"

	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"
	"docctl-server/internal/service"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type FeedbackHandler struct {
	feedbackService *service.FeedbackService
	queryService    *service.QueryStateService
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewFeedbackHandler(feedbackService *service.FeedbackService, queryService *service.QueryStateService, v *validator.Validate, logger *zap.Logger) *FeedbackHandler {
	return &FeedbackHandler{
		feedbackService: feedbackService,
		queryService:    queryService,
		validator:       v,
		logger:          logger,
	}
}

// pathID reads a numeric route variable. A malformed id is reported as a
// missing record.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		response.NotFound(w, "Not found")
		return 0, false
	}
	return id, true
}

func (h *FeedbackHandler) List(w http.ResponseWriter, r *http.Request) {
	var q domain.FeedbackQuery
	h.queryService.Load(r.Context(), middleware.GetUserID(r), domain.PageFeedback, &q)
	paginationFromQuery(r, &q.Pagination)
	h.list(w, r, &q)
}

func (h *FeedbackHandler) Query(w http.ResponseWriter, r *http.Request) {
	var q domain.FeedbackQuery
	if !decodeJSON(w, r, &q) || !validate(w, h.validator, q) {
		return
	}

	if err := h.queryService.Save(r.Context(), middleware.GetUserID(r), domain.PageFeedback, &q, &q.Pagination); err != nil {
		h.logger.Warn("failed to save feedback query", zap.Error(err))
	}
	h.list(w, r, &q)
}

func (h *FeedbackHandler) ClearQuery(w http.ResponseWriter, r *http.Request) {
	if err := h.queryService.Clear(r.Context(), middleware.GetUserID(r), domain.PageFeedback); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *FeedbackHandler) list(w http.ResponseWriter, r *http.Request, q *domain.FeedbackQuery) {
	page, err := h.feedbackService.List(r.Context(), middleware.GetActor(r), q)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, page)
}

func (h *FeedbackHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	fb, err := h.feedbackService.Get(r.Context(), middleware.GetActor(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fb)
}

func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateFeedbackRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	fb, err := h.feedbackService.Create(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, fb)
}

func (h *FeedbackHandler) Edit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.EditFeedbackRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	fb, err := h.feedbackService.Edit(r.Context(), middleware.GetActor(r), id, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Success(w, fb)
}

func (h *FeedbackHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.feedbackService.Delete(r.Context(), middleware.GetActor(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.NoContent(w)
}

func (h *FeedbackHandler) Reply(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req domain.FeedbackReplyRequest
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	fb, err := h.feedbackService.Reply(r.Context(), middleware.GetActor(r), id, &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	response.Created(w, fb)
}

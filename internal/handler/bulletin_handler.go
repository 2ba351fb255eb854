package handler

import (
	"net/http"

	"docctl-server/internal/domain"
	"docctl-server/internal/middleware"
	"docctl-server/internal/service"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type BulletinHandler struct {
	bulletinService *service.BulletinService
	validator       *validator.Validate
	logger          *zap.Logger
}

func NewBulletinHandler(bulletinService *service.BulletinService, v *validator.Validate, logger *zap.Logger) *BulletinHandler {
	return &BulletinHandler{
		bulletinService: bulletinService,
		validator:       v,
		logger:          logger,
	}
}

func (h *BulletinHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.bulletinService.Get(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, settings)
}

func (h *BulletinHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if !decodeJSON(w, r, &req) || !validate(w, h.validator, req) {
		return
	}

	settings, err := h.bulletinService.Update(r.Context(), middleware.GetActor(r), &req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	response.Success(w, settings)
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"docctl-server/internal/domain"
	"docctl-server/internal/service"
	"docctl-server/internal/version"
	"docctl-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// NewValidator returns a validator that reports JSON field names and knows
// the docver tag for well-formed "major.minor" labels.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("docver", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return strings.Contains(s, ".") && version.Parse(s).Valid
	})
	return v
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func validate(w http.ResponseWriter, v *validator.Validate, req any) bool {
	err := v.Struct(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		response.BadRequest(w, err.Error())
		return false
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	response.ValidationErrors(w, messages)
	return false
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "datetime":
		return fe.Field() + " must be a date (YYYY-MM-DD)"
	case "docver":
		return fe.Field() + " must look like major.minor, e.g. 1.0"
	case "email":
		return fe.Field() + " must be a valid email address"
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

// writeError maps service errors onto HTTP statuses. Anything unknown is
// logged and reported as 500 without details.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationErrors(w, verr.Messages)
	case errors.Is(err, service.ErrNotFound):
		response.NotFound(w, "Not found")
	case errors.Is(err, service.ErrForbidden):
		response.Forbidden(w, "Forbidden")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(w, err.Error())
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrDuplicateVersion),
		errors.Is(err, service.ErrHasClaims),
		errors.Is(err, service.ErrNotLatest),
		errors.Is(err, service.ErrClaimClosed),
		errors.Is(err, service.ErrAlreadyExists),
		errors.Is(err, service.ErrNotVerified):
		response.Conflict(w, err.Error())
	case errors.Is(err, service.ErrInvalidVersion),
		errors.Is(err, service.ErrInvalidClaimDate),
		errors.Is(err, service.ErrNumbersExhausted):
		response.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		response.InternalError(w, "Internal server error")
	}
}

// paginationFromQuery overrides p with whichever paging parameters the
// query string carries.
func paginationFromQuery(r *http.Request, p *domain.Pagination) {
	q := r.URL.Query()
	if n, err := strconv.Atoi(q.Get("page_number")); err == nil {
		p.PageNumber = n
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil {
		p.PageSize = n
	}
	if v := q.Get("order_by"); v != "" {
		p.OrderBy = v
		p.SortDir = q.Get("sort_dir")
	}
}

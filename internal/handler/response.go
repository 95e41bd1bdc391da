package handler

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"engage/internal/domain"
	"engage/internal/middleware"
	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

var validate = validator.New()

// Middlewares are the auth layers handlers attach to their protected routes
type Middlewares struct {
	Auth         func(http.Handler) http.Handler
	OptionalAuth func(http.Handler) http.Handler
	Staff        func(http.Handler) http.Handler
}

// DataResponse is the success envelope
type DataResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, log *logger.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(DataResponse{Success: true, Data: data}); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func respondNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// respondError maps err to an AppError and writes the error envelope
func respondError(w http.ResponseWriter, r *http.Request, log *logger.Logger, err error) {
	middleware.WriteError(w, r, mapError(err), log)
}

// mapError translates domain sentinels into HTTP-aware AppErrors
func mapError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, domain.ErrAlreadyAwarded),
		stderrors.Is(err, domain.ErrAwardInProgress),
		stderrors.Is(err, domain.ErrActivityNotApproved),
		stderrors.Is(err, domain.ErrAlreadyOnTeam),
		stderrors.Is(err, domain.ErrNotAMember),
		stderrors.Is(err, domain.ErrLeaderCannotLeave),
		stderrors.Is(err, domain.ErrInsufficientBalance):
		return errors.NewConflictError(sentence(err), err)

	case stderrors.Is(err, domain.ErrActivityNotFound),
		stderrors.Is(err, domain.ErrUserNotFound),
		stderrors.Is(err, domain.ErrTeamNotFound),
		stderrors.Is(err, domain.ErrItemNotFound),
		stderrors.Is(err, domain.ErrNotificationNotFound),
		stderrors.Is(err, domain.ErrLeaderboardNotFound):
		return errors.NewNotFoundError(sentence(err))

	case stderrors.Is(err, domain.ErrUnauthorized):
		return errors.NewAuthorizationError(sentence(err))

	case stderrors.Is(err, domain.ErrInvalidMode),
		stderrors.Is(err, domain.ErrInvalidDateFilter),
		stderrors.Is(err, domain.ErrInvalidQuantity),
		stderrors.Is(err, domain.ErrInvalidCategory):
		return errors.NewValidationError(sentence(err), nil)
	}

	return errors.NewInternalError("Internal server error", err)
}

// sentence capitalises the first letter of err's message
func sentence(err error) string {
	msg := err.Error()
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// decodeJSON reads a JSON body into dst and validates it
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *errors.AppError {
	return decode(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON but accepts an empty body
func decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) *errors.AppError {
	return decode(w, r, dst, true)
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) *errors.AppError {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && stderrors.Is(err, io.EOF)) {
			return errors.NewValidationError("Invalid request body", map[string]interface{}{"body": err.Error()})
		}
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !stderrors.As(err, &verrs) {
			return errors.NewValidationError("Invalid request body", nil)
		}
		details := make(map[string]interface{}, len(verrs))
		for _, fe := range verrs {
			details[jsonFieldName(fe.Namespace())] = describe(fe)
		}
		return errors.NewValidationError("Validation failed", details)
	}
	return nil
}

// jsonFieldName turns "ActivityInput.EventDate" into "event_date"
func jsonFieldName(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		namespace = namespace[i+1:]
	}
	var b strings.Builder
	for i, c := range namespace {
		if c >= 'A' && c <= 'Z' {
			if i > 0 && isLowerOrDigit(namespace[i-1]) {
				b.WriteByte('_')
			}
			c += 'a' - 'A'
		}
		b.WriteRune(c)
	}
	return b.String()
}

func isLowerOrDigit(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be less than or equal to " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtefield":
		return "must not be before " + jsonFieldName(fe.Param())
	case "url":
		return "must be a valid URL"
	default:
		return "is invalid"
	}
}

// pathID parses a positive int64 URL parameter
func pathID(r *http.Request, name string) (int64, *errors.AppError) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("Invalid "+name, map[string]interface{}{name: raw})
	}
	return id, nil
}

func userOrNil(r *http.Request) *domain.User {
	return middleware.UserFromContext(r.Context())
}

// requireUser returns the authenticated user or writes a 401
func requireUser(w http.ResponseWriter, r *http.Request, log *logger.Logger) *domain.User {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		middleware.WriteError(w, r, errors.NewAuthenticationError("Authentication required"), log)
	}
	return user
}

package middleware

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/google/uuid"
)

// ContextKey represents keys used in request context
type ContextKey string

const (
	// UserContextKey is the key for the authenticated *domain.User in context
	UserContextKey ContextKey = "user"
	// RequestIDContextKey is the key for request ID in context
	RequestIDContextKey ContextKey = "request_id"
)

// RequestIDHeader is echoed back on every response
const RequestIDHeader = "X-Request-ID"

// Auth creates an authentication middleware. The bearer token is verified and the user it
// names is loaded, so handlers always see the current staff flag and balance.
func Auth(authService service.AuthService, users service.UserService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, appErr := bearerToken(r)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			user, appErr := authenticate(r.Context(), authService, users, token, logger)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			logger.WithRequest(RequestIDFromContext(r.Context()), user.ID).Debug("User authenticated successfully")
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// OptionalAuth authenticates when an Authorization header is present and otherwise
// continues anonymously. A present but invalid token is still rejected.
func OptionalAuth(authService service.AuthService, users service.UserService, logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, appErr := bearerToken(r)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			user, appErr := authenticate(r.Context(), authService, users, token, logger)
			if appErr != nil {
				WriteError(w, r, appErr, logger)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireStaff rejects requests whose user may not moderate. Must run after Auth.
func RequireStaff(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				WriteError(w, r, errors.NewAuthenticationError("Authentication required"), logger)
				return
			}
			if !user.CanModerate() {
				WriteError(w, r, errors.NewAuthorizationError("Staff access required"), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID tags each request with an ID, reusing a well-formed incoming X-Request-ID
func RequestID(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(requestID); err != nil {
				requestID = uuid.NewString()
			}

			ctx := context.WithValue(r.Context(), RequestIDContextKey, requestID)
			w.Header().Set(RequestIDHeader, requestID)

			logger.WithRequest(requestID, 0).WithFields(map[string]interface{}{
				"method": r.Method,
				"path":   r.URL.Path,
			}).Debug("Request received")

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser stores the acting user in ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// UserFromContext returns the authenticated user, or nil for anonymous requests
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(UserContextKey).(*domain.User)
	return user
}

// RequestIDFromContext returns the request ID set by RequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDContextKey).(string)
	return id
}

// WriteError writes appErr as the JSON error envelope
func WriteError(w http.ResponseWriter, r *http.Request, appErr *errors.AppError, logger *logger.Logger) {
	var userID int64
	if user := UserFromContext(r.Context()); user != nil {
		userID = user.ID
	}
	entry := logger.WithRequest(RequestIDFromContext(r.Context()), userID).WithError(appErr).WithFields(map[string]interface{}{
		"status": appErr.StatusCode,
		"path":   r.URL.Path,
	})
	if appErr.StatusCode >= http.StatusInternalServerError {
		entry.Error("Request error")
	} else {
		entry.Debug("Request rejected")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)

	if err := json.NewEncoder(w).Encode(errors.NewErrorResponse(appErr, RequestIDFromContext(r.Context()))); err != nil {
		logger.WithError(err).Error("Failed to encode error response")
	}
}

func bearerToken(r *http.Request) (string, *errors.AppError) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.NewAuthenticationError("Authorization header is required")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errors.NewAuthenticationError("Invalid authorization header format")
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", errors.NewAuthenticationError("Token is required")
	}
	return token, nil
}

func authenticate(ctx context.Context, authService service.AuthService, users service.UserService, token string, logger *logger.Logger) (*domain.User, *errors.AppError) {
	claims, err := authService.ValidateToken(ctx, token)
	if err != nil {
		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, errors.NewAuthenticationError("Invalid or expired token")
	}

	user, err := users.Get(ctx, claims.UserID)
	if err != nil {
		if stderrors.Is(err, domain.ErrUserNotFound) {
			return nil, errors.NewAuthenticationError("User no longer exists")
		}
		logger.WithError(err).WithField("user_id", claims.UserID).Error("Failed to load authenticated user")
		return nil, errors.NewInternalError("Failed to load user", err)
	}
	return user, nil
}

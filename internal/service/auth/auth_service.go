package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"engage/internal/domain"
	"engage/internal/service"
	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is the iss claim of session tokens.
const Issuer = "engage"

// sessionClaims is the token payload produced by the login-link flow
type sessionClaims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements the AuthService interface
type Service struct {
	secret []byte
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new auth service verifying HS256 session tokens
func NewService(secret string, logger *logger.Logger) service.AuthService {
	return newService(secret, logger, time.Now)
}

func newService(secret string, logger *logger.Logger, now func() time.Time) *Service {
	return &Service{secret: []byte(secret), logger: logger, now: now}
}

// ValidateToken verifies signature, issuer and expiry and returns the session claims
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*domain.AuthClaims, error) {
	if tokenString == "" {
		return nil, errors.NewAuthenticationError("Missing token")
	}
	if len(s.secret) == 0 {
		s.logger.Error("JWT secret not configured")
		return nil, errors.NewAuthenticationError("JWT validation not configured")
	}

	keyFunc := func(token *jwt.Token) (interface{}, error) {
		// Verify the signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc,
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		s.logger.WithError(err).Debug("Failed to parse/validate JWT token")
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.NewAuthenticationError("Token has expired")
		}
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}
	if !token.Valid {
		return nil, errors.NewAuthenticationError("Invalid JWT token")
	}

	userID := claims.UserID
	if userID == 0 && claims.Subject != "" {
		// Tokens minted by older tooling carry the id only in sub.
		if id, convErr := strconv.ParseInt(claims.Subject, 10, 64); convErr == nil {
			userID = id
		}
	}
	if userID <= 0 {
		s.logger.Error("No user identifier found in JWT token")
		return nil, errors.NewAuthenticationError("Invalid JWT token: no user identifier")
	}

	s.logger.WithField("user_id", userID).Debug("JWT token validated successfully")
	return &domain.AuthClaims{UserID: userID, Email: claims.Email}, nil
}

// IssueToken signs a session token for userID valid for ttl
func IssueToken(secret string, userID int64, email string, ttl time.Duration, now time.Time) (string, error) {
	claims := sessionClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

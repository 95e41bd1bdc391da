package auth

import (
	"context"
	"testing"
	"time"

	"engage/pkg/errors"
	"engage/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestValidateToken(t *testing.T) {
	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(testSecret, logger.NewNop(), func() time.Time { return now })

	valid, err := IssueToken(testSecret, 42, "ada@example.com", time.Hour, now)
	require.NoError(t, err)

	expired, err := IssueToken(testSecret, 42, "ada@example.com", time.Hour, now.Add(-2*time.Hour))
	require.NoError(t, err)

	wrongSecret, err := IssueToken("other-secret", 42, "ada@example.com", time.Hour, now)
	require.NoError(t, err)

	wrongIssuer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	subjectOnly, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name       string
		token      string
		wantUserID int64
		wantMsg    string
	}{
		{name: "Valid token", token: valid, wantUserID: 42},
		{name: "Subject fallback", token: subjectOnly, wantUserID: 7},
		{name: "Empty token", token: "", wantMsg: "Missing token"},
		{name: "Expired token", token: expired, wantMsg: "Token has expired"},
		{name: "Wrong secret", token: wrongSecret, wantMsg: "Invalid JWT token"},
		{name: "Wrong issuer", token: wrongIssuer, wantMsg: "Invalid JWT token"},
		{name: "Garbage", token: "header.payload.signature", wantMsg: "Invalid JWT token"},
		{name: "No user id", token: noUser, wantMsg: "Invalid JWT token: no user identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(context.Background(), tt.token)
			if tt.wantMsg != "" {
				require.Error(t, err)
				appErr, ok := err.(*errors.AppError)
				require.True(t, ok)
				assert.Equal(t, errors.ErrorTypeAuthentication, appErr.Type)
				assert.Equal(t, tt.wantMsg, appErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUserID, claims.UserID)
		})
	}
}

func TestValidateToken_NoSecretConfigured(t *testing.T) {
	svc := newService("", logger.NewNop(), time.Now)
	_, err := svc.ValidateToken(context.Background(), "a.b.c")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	now := time.Now()
	svc := newService(testSecret, logger.NewNop(), func() time.Time { return now })

	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, sessionClaims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.Error(t, err)
}

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticator_IssueAndParse(t *testing.T) {
	a := NewAuthenticator("test-secret", nil)

	token, err := a.Issue("user-42", time.Minute)
	require.NoError(t, err)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.User())
}

func TestAuthenticator_RejectsWrongSecret(t *testing.T) {
	token, err := NewAuthenticator("one", nil).Issue("user-42", time.Minute)
	require.NoError(t, err)

	_, err = NewAuthenticator("two", nil).Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthenticator_Expired(t *testing.T) {
	a := NewAuthenticator("test-secret", nil)
	token, err := a.Issue("user-42", -time.Minute)
	require.NoError(t, err)

	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestAuthenticator_UnverifiedReadsSubject(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "sub-7"}).
		SignedString([]byte("someone-elses-secret"))
	require.NoError(t, err)

	a := NewAuthenticator("", nil)
	assert.Equal(t, "sub-7", a.CurrentUserID(WithToken(context.Background(), token)))

	_, err = a.Issue("x", time.Minute)
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestCurrentUserID_NoCredential(t *testing.T) {
	a := NewAuthenticator("test-secret", nil)
	assert.Empty(t, a.CurrentUserID(context.Background()))
	assert.Empty(t, a.CurrentUserID(WithToken(context.Background(), "garbage")))
}

func TestMiddleware(t *testing.T) {
	a := NewAuthenticator("test-secret", nil)
	token, err := a.Issue("user-42", time.Minute)
	require.NoError(t, err)

	var seen string
	handler := a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = a.CurrentUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
		wantUser string
	}{
		{"anonymous", "", http.StatusNoContent, ""},
		{"valid bearer", "Bearer " + token, http.StatusNoContent, "user-42"},
		{"bad scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/conversations/c1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}

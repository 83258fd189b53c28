package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaims(exp time.Duration) Claims {
	now := time.Now()
	return Claims{
		BusinessID: "biz-1",
		Role:       "owner",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(exp)),
		},
	}
}

func TestHS256RoundTrip(t *testing.T) {
	token, err := SignHS256(testClaims(time.Hour), "test-secret")
	require.NoError(t, err)

	parsed, err := ParseAndVerifyHS256(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "biz-1", parsed.BusinessID)
	assert.Equal(t, "owner", parsed.Role)
	assert.Equal(t, "user-1", parsed.Subject)

	_, err = ParseAndVerifyHS256(token, "wrong-secret")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	token, err := SignHS256(testClaims(-time.Hour), "s")
	require.NoError(t, err)
	_, err = ParseAndVerifyHS256(token, "s")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireBearer(t *testing.T) {
	var got *Claims
	h := RequireBearer("s", "owner", "staff")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := SignHS256(testClaims(time.Hour), "s")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "biz-1", got.BusinessID)

	c := testClaims(time.Hour)
	c.Role = "customer"
	token, err = SignHS256(c, "s")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

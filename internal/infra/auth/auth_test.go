package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xela07ax/agentvault/internal/domain"
)

func signed(t *testing.T, key *rsa.PrivateKey, method jwt.SigningMethod, scopes map[string]bool) string {
	t.Helper()
	claims := domain.CustomClaims{
		UserID:  "u-1",
		Address: "0x00000000000000000000000000000000000a11ce",
		Scopes:  scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	var s string
	var err error
	if method == jwt.SigningMethodHS256 {
		s, err = jwt.NewWithClaims(method, claims).SignedString([]byte("secret"))
	} else {
		s, err = jwt.NewWithClaims(method, claims).SignedString(key)
	}
	require.NoError(t, err)
	return s
}

func TestVerifyToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey)

	claims, err := v.VerifyToken("Bearer " + signed(t, key, jwt.SigningMethodRS256, map[string]bool{"owner": true}))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.True(t, claims.Scopes["owner"])

	_, err = v.VerifyToken(signed(t, key, jwt.SigningMethodHS256, nil))
	assert.Error(t, err)

	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	_, err = v.VerifyToken(signed(t, other, jwt.SigningMethodRS256, nil))
	assert.Error(t, err)
}

func TestMiddlewareAndScopes(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey)

	var seen *domain.CustomClaims
	h := NewMiddleware(v, zap.NewNop())(RequireScope(domain.ScopeOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("garbage"))
	assert.Equal(t, http.StatusForbidden, do(signed(t, key, jwt.SigningMethodRS256, map[string]bool{"agent": true})))
	assert.Equal(t, http.StatusNoContent, do(signed(t, key, jwt.SigningMethodRS256, map[string]bool{"owner": true})))
	require.NotNil(t, seen)
	assert.Equal(t, "u-1", seen.UserID)
}

func TestVerifyTokenChecksCallerClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	v := NewBaseValidator(&key.PublicKey)

	sign := func(addr string, exp *jwt.NumericDate) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, domain.CustomClaims{
			Address:          addr,
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp},
		}).SignedString(key)
		require.NoError(t, err)
		return s
	}
	inAnHour := jwt.NewNumericDate(time.Now().Add(time.Hour))

	claims, err := v.VerifyToken(sign("0x00000000000000000000000000000000000a11ce", inAnHour))
	require.NoError(t, err)
	assert.True(t, strings.EqualFold("0x00000000000000000000000000000000000a11ce", claims.Address), claims.Address)

	_, err = v.VerifyToken(sign("0xa11ce", inAnHour))
	assert.Error(t, err)

	_, err = v.VerifyToken(sign("", inAnHour))
	assert.Error(t, err)

	_, err = v.VerifyToken(sign("0x00000000000000000000000000000000000a11ce", nil))
	assert.Error(t, err)
}

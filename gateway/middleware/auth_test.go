package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"chronicles/crypto"
)

const testSecret = "chronicles-test-secret"

var testCaller = crypto.Identity{0xca, 0x11}

func authRequest(t *testing.T, auth *Authenticator, token string, scopes ...string) (*httptest.ResponseRecorder, crypto.Identity) {
	t.Helper()
	var seen crypto.Identity
	handler := auth.Middleware(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CallerFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res, seen
}

func TestAuthenticatorAttachesCaller(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "chronicles"}, nil)
	token, err := IssueToken(testSecret, TokenRequest{
		Subject: testCaller,
		Issuer:  "chronicles",
		Scopes:  []string{"mint"},
		TTL:     time.Hour,
	}, time.Now())
	require.NoError(t, err)

	res, caller := authRequest(t, auth, token, "mint")
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, testCaller, caller)

	res, _ = authRequest(t, auth, token, "admin")
	require.Equal(t, http.StatusForbidden, res.Code)
}

func TestAuthenticatorRejectsBadTokens(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, Issuer: "chronicles"}, nil)

	res, _ := authRequest(t, auth, "")
	require.Equal(t, http.StatusUnauthorized, res.Code)

	wrongSecret, err := IssueToken("other-secret", TokenRequest{Subject: testCaller, Issuer: "chronicles", TTL: time.Hour}, time.Now())
	require.NoError(t, err)
	res, _ = authRequest(t, auth, wrongSecret)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	wrongIssuer, err := IssueToken(testSecret, TokenRequest{Subject: testCaller, Issuer: "elsewhere", TTL: time.Hour}, time.Now())
	require.NoError(t, err)
	res, _ = authRequest(t, auth, wrongIssuer)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	expired, err := IssueToken(testSecret, TokenRequest{Subject: testCaller, Issuer: "chronicles", TTL: time.Minute}, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	res, _ = authRequest(t, auth, expired)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	noExpiry, err := IssueToken(testSecret, TokenRequest{Subject: testCaller, Issuer: "chronicles"}, time.Now())
	require.NoError(t, err)
	res, _ = authRequest(t, auth, noExpiry)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	badSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-an-identity-0OIl",
		"iss": "chronicles",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := badSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)
	res, _ = authRequest(t, auth, signed)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAuthenticatorOptionalPaths(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:        true,
		HMACSecret:     testSecret,
		OptionalPaths:  []string{"/v1/mint"},
		AllowAnonymous: true,
	}, nil)
	res, caller := authRequest(t, auth, "")
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, caller.IsZero())
}

func TestIssueTokenRequiresSecretAndSubject(t *testing.T) {
	_, err := IssueToken(" ", TokenRequest{Subject: testCaller}, time.Now())
	require.Error(t, err)
	_, err = IssueToken(testSecret, TokenRequest{}, time.Now())
	require.Error(t, err)
}

func TestRequestIDPropagation(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/config", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.NotEmpty(t, seen)
	require.Equal(t, seen, res.Header().Get(RequestIDHeader))

	const provided = "1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	req = httptest.NewRequest(http.MethodGet, "/v1/config", nil)
	req.Header.Set(RequestIDHeader, provided)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, provided, seen)
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	handler := CORS(CORSConfig{AllowedOrigins: []string{"https://gallery.invalid"}})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/gallery", nil)
	req.Header.Set("Origin", "https://gallery.invalid")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://gallery.invalid", res.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/v1/gallery", nil)
	req.Header.Set("Origin", "https://elsewhere.invalid")
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Empty(t, res.Header().Get("Access-Control-Allow-Origin"))
}

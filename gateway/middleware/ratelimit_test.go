package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chronicles/crypto"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mint": {RatePerSecond: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("mint")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mint":  {RatePerSecond: 1, Burst: 1},
		"admin": {RatePerSecond: 1, Burst: 1},
	}, nil)
	mintHandler := limiter.Middleware("mint")(okHandler())
	adminHandler := limiter.Middleware("admin")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	req.Header.Set("X-API-Key", "tenant-A")
	res := httptest.NewRecorder()
	mintHandler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected mint request to succeed, got %d", res.Code)
	}

	adminReq := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", nil)
	adminReq.Header.Set("X-API-Key", "tenant-A")
	adminRes := httptest.NewRecorder()
	adminHandler.ServeHTTP(adminRes, adminReq)
	if adminRes.Code != http.StatusOK {
		t.Fatalf("expected first admin request to succeed, got %d", adminRes.Code)
	}

	adminRes = httptest.NewRecorder()
	adminHandler.ServeHTTP(adminRes, adminReq)
	if adminRes.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second admin request to hit limit, got %d", adminRes.Code)
	}
}

func TestRateLimiterAppliesRouteTokens(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mint": {
			RatePerSecond: 5,
			Burst:         5,
			DefaultTokens: 1,
			Tokens: map[string]int{
				"POST /v1/mint/standard": 3,
			},
		},
	}, nil)
	handler := limiter.Middleware("mint")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first mint to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second mint to exhaust the burst, got %d", res.Code)
	}

	quoteReq := httptest.NewRequest(http.MethodGet, "/v1/quote", nil)
	quoteRes := httptest.NewRecorder()
	handler.ServeHTTP(quoteRes, quoteReq)
	if quoteRes.Code != http.StatusOK {
		t.Fatalf("expected quote to succeed with default token cost, got %d", quoteRes.Code)
	}
}

func TestRateLimiterKeysByCaller(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mint": {RatePerSecond: 1, Burst: 1},
	}, nil)
	handler := limiter.Middleware("mint")(okHandler())

	for _, caller := range []crypto.Identity{{0x01}, {0x02}} {
		req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
		req = req.WithContext(WithCaller(req.Context(), caller))
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		if res.Code != http.StatusOK {
			t.Fatalf("expected caller %s to get its own bucket, got %d", caller, res.Code)
		}
	}
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mint": {RatePerSecond: 1, Burst: 1},
	}, nil)
	now := time.Unix(1_700_000_000, 0)
	limiter.clockNow = func() time.Time { return now }
	handler := limiter.Middleware("mint")(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected one tracked visitor, got %d", len(limiter.visitors))
	}

	now = now.Add(10 * time.Minute)
	other := httptest.NewRequest(http.MethodPost, "/v1/mint/standard", nil)
	other.RemoteAddr = "192.0.2.55:4000"
	handler.ServeHTTP(httptest.NewRecorder(), other)
	if len(limiter.visitors) != 1 {
		t.Fatalf("expected idle visitor to be swept, got %d", len(limiter.visitors))
	}
}

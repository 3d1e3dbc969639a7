package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/updateme/engine/internal/application/services"
	"github.com/updateme/engine/internal/core/domain/cache"
	"github.com/updateme/engine/internal/core/domain/delivery"
	"github.com/updateme/engine/internal/core/ports"
	"github.com/updateme/engine/internal/infrastructure/httpserver"
	tmocks "github.com/updateme/engine/test/mocks"
)

const goodToken = "good-token"

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string                    { return s.name }
func (s stubChecker) Check(ctx context.Context) error { return s.err }

type testEnv struct {
	server     *httpserver.Server
	newsletter *tmocks.NewsletterServiceMock
	deliveries *tmocks.DeliveryLogServiceMock
	cacheRepo  *tmocks.MemoryCacheRepository
}

func newTestEnv(checkers ...ports.HealthChecker) *testEnv {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	env := &testEnv{
		newsletter: &tmocks.NewsletterServiceMock{},
		deliveries: &tmocks.DeliveryLogServiceMock{},
		cacheRepo:  tmocks.NewMemoryCacheRepository(),
	}
	env.server = httpserver.NewServer(&httpserver.ServerConfig{}, logger, httpserver.ServerDeps{
		SummaryService:     &tmocks.SummaryServiceMock{},
		NewsletterService:  env.newsletter,
		CacheStore:         services.NewCacheService(env.cacheRepo, logger),
		DeliveryLogService: env.deliveries,
		OpsAuthService: &tmocks.OpsAuthServiceMock{ValidateTokenFn: func(token string) (*ports.OpsClaims, error) {
			if token != goodToken {
				return nil, errors.New("bad signature")
			}
			return &ports.OpsClaims{Subject: "operator", Role: "ops"}, nil
		}},
		HealthCheckers: checkers,
	})
	return env
}

func (e *testEnv) do(method, target, body, token string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOpsAPI_RequiresBearerToken(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"rejected token", "Bearer nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			env.server.Echo().ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestPreviewSummary(t *testing.T) {
	env := newTestEnv()

	rec := env.do(http.MethodGet, "/api/v1/summaries/preview", "", goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/summaries/preview?email=ana@example.com", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "summary for ana@example.com", body["body"])
	require.Equal(t, "groq", body["provider"])
	require.Equal(t, "provider", body["source"])
}

func TestSendSummary(t *testing.T) {
	env := newTestEnv()
	var sentTo string
	env.newsletter.SendFirstSummaryFn = func(ctx context.Context, email string) error {
		sentTo = email
		if email == "down@example.com" {
			return errors.New("sendgrid unavailable")
		}
		return nil
	}

	rec := env.do(http.MethodPost, "/api/v1/summaries/send", `{"email":"  ana@example.com "}`, goodToken)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, "ana@example.com", sentTo)

	rec = env.do(http.MethodPost, "/api/v1/summaries/send", `{"email":""}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/summaries/send", `{"email":"down@example.com"}`, goodToken)
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRunNewsletter(t *testing.T) {
	env := newTestEnv()
	var gotDays int
	env.newsletter.ProcessPendingEmailsFn = func(ctx context.Context, days int) (*ports.JobReport, error) {
		gotDays = days
		return &ports.JobReport{Total: 3, Sent: 2, Failed: 1}, nil
	}

	rec := env.do(http.MethodPost, "/api/v1/newsletter/run", `{"days_interval":10}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 10, gotDays)
	body := decode(t, rec)
	require.EqualValues(t, 2, body["sent"])
	require.EqualValues(t, 1, body["failed"])

	rec = env.do(http.MethodPost, "/api/v1/newsletter/run", `{"days_interval":-1}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env.newsletter.ProcessPendingEmailsFn = func(ctx context.Context, days int) (*ports.JobReport, error) {
		return nil, errors.New("db down")
	}
	rec = env.do(http.MethodPost, "/api/v1/newsletter/run", `{}`, goodToken)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv()
	old := time.Now().UTC().AddDate(0, 0, -30)
	env.cacheRepo.Put(&cache.Entry{CacheKey: "old", Payload: cache.TextPayload("x"), CreatedAt: old, CreatedDate: old.Format(cache.DateLayout), ProviderType: "groq_content"})
	now := time.Now().UTC()
	env.cacheRepo.Put(&cache.Entry{CacheKey: "new", Payload: cache.TextPayload("y"), CreatedAt: now, CreatedDate: now.Format(cache.DateLayout), ProviderType: "groq_content"})

	rec := env.do(http.MethodGet, "/api/v1/cache/stats", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 2, decode(t, rec)["entries"])

	rec = env.do(http.MethodPost, "/api/v1/cache/sweep", `{"days":-2}`, goodToken)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/cache/sweep", `{"days":7}`, goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, decode(t, rec)["deleted"])
}

func TestListDeliveries(t *testing.T) {
	env := newTestEnv()
	var got *delivery.Filter
	env.deliveries.ListFn = func(ctx context.Context, f *delivery.Filter) ([]*delivery.Delivery, int, error) {
		got = f
		return []*delivery.Delivery{{Email: "ana@example.com", Status: delivery.StatusFailed}}, 1, nil
	}

	rec := env.do(http.MethodGet, "/api/v1/deliveries?status=failed&limit=9999&since=2025-04-01&email=ana@example.com", "", goodToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 500, got.Limit)
	require.Equal(t, delivery.StatusFailed, *got.Status)
	require.Equal(t, "ana@example.com", *got.Email)
	require.Equal(t, 2025, got.Since.Year())
	body := decode(t, rec)
	require.EqualValues(t, 1, body["total"])
	require.Len(t, body["deliveries"], 1)

	for _, q := range []string{"status=pending", "limit=abc", "offset=-1", "since=yesterday"} {
		rec = env.do(http.MethodGet, "/api/v1/deliveries?"+q, "", goodToken)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", q, rec.Code)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(stubChecker{name: "database"})
	rec := env.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", decode(t, rec)["status"])

	env = newTestEnv(stubChecker{name: "database"}, stubChecker{name: "redis", err: errors.New("connection refused")})
	rec = env.do(http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "degraded", body["status"])
	deps := body["dependencies"].(map[string]any)
	require.Equal(t, "unhealthy", deps["redis"].(map[string]any)["status"])
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	env := newTestEnv()
	env.do(http.MethodGet, "/api/v1/cache/stats", "", goodToken)
	rec := env.do(http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "updateme_http_requests_total")
}

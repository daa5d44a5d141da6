package router

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ManuelReschke/CreatorPay/app/controllers"
	apiv1 "github.com/ManuelReschke/CreatorPay/internal/api/v1"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/billing"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/cache"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/catalog"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/checkout"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/metrics"
	"github.com/ManuelReschke/CreatorPay/internal/pkg/middleware"
)

func newTestApp(t *testing.T) (*fiber.App, *metrics.Metrics) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.MustNewMetrics(reg)
	rec := billing.NewReconciler(billing.NewMemoryRepository(),
		billing.WithCatalog(catalog.Default()),
		billing.WithMetrics(m),
	)

	app := fiber.New()
	InstallRouter(app, Dependencies{
		Webhooks:         controllers.NewWebhookController(billing.NewWebhookProcessor(billing.NewVerifier("whsec_router", 0), rec)),
		Checkout:         controllers.NewCheckoutController(checkout.NewBuilder(catalog.Default(), nil, "https://example.test"), rec),
		Ledger:           controllers.NewLedgerController(rec, nil),
		Admin:            controllers.NewAdminLedgerController(rec, nil),
		AdminCredentials: middleware.AdminCredentials{Username: "ops", PasswordHash: string(hash)},
		Gatherer:         reg,
	})
	return app, m
}

func basicAuth(user, pass string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+pass))
}

func TestRoutesAreInstalled(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name   string
		method string
		target string
		auth   string
		status int
	}{
		{"api root", http.MethodGet, "/api", "", fiber.StatusOK},
		{"unsigned webhook", http.MethodPost, "/webhooks/stripe", "", fiber.StatusBadRequest},
		{"entitlement", http.MethodGet, "/api/v1/entitlements/sub_1", "", fiber.StatusOK},
		{"summary", http.MethodGet, "/api/v1/creators/cr_1/summary", "", fiber.StatusOK},
		{"transactions", http.MethodGet, "/api/v1/creators/cr_1/transactions", "", fiber.StatusOK},
		{"admin without credentials", http.MethodPost, "/api/v1/admin/creators/cr_1/recompute", "", fiber.StatusUnauthorized},
		{"admin wrong password", http.MethodGet, "/api/v1/admin/events/evt_1/audit", basicAuth("ops", "nope"), fiber.StatusUnauthorized},
		{"admin audit", http.MethodGet, "/api/v1/admin/events/evt_1/audit", basicAuth("ops", "s3cret"), fiber.StatusNotFound},
		{"admin sync recompute", http.MethodPost, "/api/v1/admin/creators/cr_1/recompute?sync=true", basicAuth("ops", "s3cret"), fiber.StatusOK},
		{"metrics without credentials", http.MethodGet, "/metrics", "", fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.auth != "" {
				req.Header.Set(fiber.HeaderAuthorization, tt.auth)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	app, m := newTestApp(t)
	m.SetQueueDepth(3, 1)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(fiber.HeaderAuthorization, basicAuth("ops", "s3cret"))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `creatorpay_jobqueue_depth{list="pending"} 3`)
}

func TestLimiterStorageFallsBackWithoutRedis(t *testing.T) {
	t.Setenv("CACHE_HOST", "127.0.0.1")
	t.Setenv("CACHE_PORT", "1")
	require.NoError(t, cache.Close())
	t.Cleanup(func() { _ = cache.Close() })

	assert.Nil(t, NewLimiterStorage())
}

func TestEveryRouteIsDocumented(t *testing.T) {
	app, _ := newTestApp(t)
	doc, err := apiv1.LoadDocument(context.Background(), filepath.Join("..", "..", "..", apiv1.DocumentPath))
	require.NoError(t, err)

	var registered []string
	for _, r := range app.GetRoutes(true) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			continue
		}
		if !strings.HasPrefix(r.Path, "/api/v1/") && !strings.HasPrefix(r.Path, "/webhooks/") {
			continue
		}
		registered = append(registered, r.Method+" "+r.Path)
	}
	sort.Strings(registered)

	assert.Equal(t, apiv1.Operations(doc), registered)
}

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/hexashop/internal/config"
	identityDB "github.com/davicafu/hexashop/internal/identity/infra/outbound/db"
	"github.com/davicafu/hexashop/internal/shared/domain"
	"github.com/davicafu/hexashop/internal/shared/infra/platform/db/sqlstore"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.HTTPPort = "0"
	cfg.Transport = config.TransportMemory
	cfg.Redis.Addr = "" // sin Redis: caché en memoria
	cfg.Identity.DSN = filepath.Join(dir, "identity.db")
	cfg.Shop.DSN = filepath.Join(dir, "shop.db")
	cfg.Outbox.PollInterval = 20 * time.Millisecond
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestApp_UserRegistrationPropagatesAcrossContexts(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())

	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("app did not stop")
		}
	})

	// 1. alta de usuario por HTTP
	body := `{"email":"Ana@Example.com","nombre":"Ana","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	userID := resp.Data.ID

	// 2. shop crea el cliente a partir de UserRegistered
	var customerID uuid.UUID
	require.Eventually(t, func() bool {
		c, err := a.Customers.GetByUserID(ctx, userID)
		if err != nil {
			return false
		}
		customerID = c.ID
		return true
	}, 5*time.Second, 20*time.Millisecond)

	// 3. identity enlaza el customer id (leído directo de la base, sin caché)
	db, dialect, err := sqlstore.Open(ctx, "sqlite", cfg.Identity.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	users := identityDB.NewUserRepo(db, dialect)

	require.Eventually(t, func() bool {
		u, err := users.GetByID(ctx, userID)
		return err == nil && u.CustomerID != nil && *u.CustomerID == customerID
	}, 5*time.Second, 20*time.Millisecond)

	// 4. todos los registros de ambos outbox acaban Processed
	require.Eventually(t, func() bool {
		idCounts, err1 := a.Identity.Store.CountByStatus(ctx)
		shopCounts, err2 := a.Shop.Store.CountByStatus(ctx)
		return err1 == nil && err2 == nil &&
			idCounts[domain.OutboxPending] == 0 && idCounts[domain.OutboxProcessed] == 2 &&
			shopCounts[domain.OutboxPending] == 0 && shopCounts[domain.OutboxProcessed] >= 2
	}, 5*time.Second, 20*time.Millisecond)
}

func TestApp_SystemAndAdminRoutes(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)

	for _, path := range []string{"/health", "/metrics", "/admin/outbox/identity/stats", "/admin/outbox/shop/records?status=Pending"} {
		w := httptest.NewRecorder()
		a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/outbox/billing/stats", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// sin ClickHouse no hay resumen de intentos
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/outbox/identity/attempts", nil))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestApp_InvalidDriverFails(t *testing.T) {
	cfg := testConfig(t)
	cfg.Shop.Driver = "mysql"
	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestSubjectFilters(t *testing.T) {
	got := subjectFilters([]string{"identity.users", "identity.events", "shop.customers", "search.customers", "notification.emails"})
	assert.Equal(t, []string{"identity.>", "notification.>", "search.>", "shop.>"}, got)
}

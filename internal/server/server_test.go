package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia/custodia/internal/config"
	"github.com/custodia/custodia/internal/identity"
	"github.com/custodia/custodia/internal/ledger"
	"github.com/custodia/custodia/internal/logging"
	"github.com/custodia/custodia/internal/routes"
)

func testConfig() config.Config {
	return config.Config{
		AppName:         "custodia-test",
		Env:             "test",
		Port:            "0",
		DefaultCurrency: "USD",
		CORSOrigins:     "*",
		LoginRateLimit:  100,
		IdempotencyTTL:  time.Minute,
		StoreTimeout:    time.Second,
	}
}

type harness struct {
	app   *fiber.App
	store *ledger.MemoryStore
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cache.Close() })

	store := ledger.NewMemoryStore()
	srv, err := New(routes.Deps{Cfg: testConfig(), Cache: cache, Logger: logging.Discard(), Store: store})
	require.NoError(t, err)
	return &harness{app: srv.App(), store: store}
}

func (h *harness) do(t *testing.T, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(payload) > 0 {
		require.NoError(t, json.Unmarshal(payload, &out), string(payload))
	}
	return resp.StatusCode, out
}

func (h *harness) login(t *testing.T, email string) string {
	t.Helper()
	status, body := h.do(t, fiber.MethodPost, "/api/login", `{"email":"`+email+`","password":"pw"}`, nil)
	require.Equal(t, http.StatusOK, status)
	return body["account"].(map[string]any)["id"].(string)
}

func TestReservedIdentityFlow(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, fiber.MethodPost, "/api/login", `{"email":"DaveB_HVAC@msn.com","password":"Secure@2026"}`, nil)
	require.Equal(t, http.StatusOK, status)
	account := body["account"].(map[string]any)
	assert.Equal(t, identity.ReservedAccountID, account["id"])
	assert.Equal(t, "ROGER DAVID B.", account["name"])
	assert.Equal(t, map[string]any{"balance": "12000.00", "currency": "GBP"}, body["wallet"])

	status, body = h.do(t, fiber.MethodGet, "/api/data/999", "", nil)
	require.Equal(t, http.StatusOK, status)
	txs := body["transactions"].([]any)
	require.Len(t, txs, 1)
	assert.Equal(t, "DEPOSIT", txs[0].(map[string]any)["type"])

	status, body = h.do(t, fiber.MethodPost, "/api/accounts/999/withdrawals", `{"amount":100}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DENIED", body["outcome"])
	assert.Equal(t, "InsufficientMinimumBalance", body["reason"])
	assert.Equal(t, "12000.00", body["currentBalance"])
	assert.Equal(t, "15000.00", body["minimumRequired"])
}

func TestReservedIdentityWrongPassword(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, fiber.MethodPost, "/api/login", `{"email":"daveb_hvac@msn.com","password":"nope"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "incorrect email or password", body["detail"])
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, fiber.MethodPost, "/api/login", `{"email":"not-an-email"}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, map[string]any{"email": "email", "password": "required"}, body["errors"])

	status, _ = h.do(t, fiber.MethodPost, "/api/login", `{`, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNewAccountWithdrawalFlow(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, "customer@example.com")

	status, body := h.do(t, fiber.MethodGet, "/api/data/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", body["wallet"].(map[string]any)["balance"])
	assert.Empty(t, body["transactions"])

	status, body = h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/withdrawals", `{"amount":"10"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DENIED", body["outcome"])

	ledger.SeedDeposit(h.store, id, decimal.NewFromInt(16_000))

	key := map[string]string{"Idempotency-Key": "wd-1"}
	status, body = h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/withdrawals", `{"amount":"1000.25"}`, key)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "APPROVED", body["outcome"])
	assert.Equal(t, "14999.75", body["newBalance"])
	tx := body["transaction"].(map[string]any)
	assert.Equal(t, "WITHDRAWAL", tx["type"])
	assert.Equal(t, "1000.25", tx["amount"])

	// A retry with the same key replays instead of debiting again.
	status, replay := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/withdrawals", `{"amount":"1000.25"}`, key)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, body, replay)

	status, body = h.do(t, fiber.MethodGet, "/api/data/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "14999.75", body["wallet"].(map[string]any)["balance"])
	txs := body["transactions"].([]any)
	require.Len(t, txs, 2)
	assert.Equal(t, "WITHDRAWAL", txs[0].(map[string]any)["type"])
}

func TestWithdrawalErrors(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, "errors@example.com")

	amounts := []string{
		`"abc"`, `0`, `-5`, `"NaN"`, `null`,
		`"0.001"`, `1e-7`, `"1e400"`, `10.005`, `1e-30000000`,
	}
	for _, amount := range amounts {
		status, _ := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/withdrawals", `{"amount":`+amount+`}`, nil)
		assert.Equal(t, http.StatusBadRequest, status, amount)
	}

	status, _ := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/withdrawals", `{}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, body := h.do(t, fiber.MethodGet, "/api/data/"+id, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["transactions"])

	status, body = h.do(t, fiber.MethodPost, "/api/accounts/00000000-0000-7000-8000-00000000ffff/withdrawals", `{"amount":1}`, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "wallet not found", body["detail"])
}

func TestUnknownAccountData(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, fiber.MethodGet, "/api/data/nobody", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.EqualValues(t, http.StatusNotFound, body["status"])
}

func TestAddMoneyAlwaysDenied(t *testing.T) {
	h := newHarness(t)
	id := h.login(t, "depositor@example.com")

	for _, body := range []string{`{"amount":500}`, `{"amount":0}`, `{"amount":-1}`, `{"amount":"lots","role":"CUSTOMER"}`} {
		status, resp := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/deposits", body, nil)
		assert.Equal(t, http.StatusForbidden, status, body)
		assert.Equal(t, "DENIED", resp["outcome"])
		assert.Equal(t, "PermissionDenied", resp["reason"])
	}

	status, resp := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/deposits", `{"amount":500,"role":"ADMINISTRATOR"}`, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NotImplemented", resp["reason"])

	// Missing or unreadable bodies are refused the same way.
	for _, body := range []string{"", "not json", `{"role":"` + strings.Repeat("x", 64) + `"}`} {
		status, resp := h.do(t, fiber.MethodPost, "/api/accounts/"+id+"/deposits", body, nil)
		assert.Equal(t, http.StatusForbidden, status, body)
		assert.Equal(t, "PermissionDenied", resp["reason"], body)
	}

	w, err := h.store.GetWallet(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	status, body := h.do(t, fiber.MethodGet, "/healthz", "", map[string]string{"X-Request-ID": "health-1"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]any{"store": "ok", "redis": "ok", "nats": "disabled"}, body["status"])
}

func TestSetupRequiresBackendsOutsideDev(t *testing.T) {
	cfg := testConfig()
	cfg.Env = "production"

	_, err := New(routes.Deps{Cfg: cfg, Logger: logging.Discard(), Store: ledger.NewMemoryStore()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis is required")
}

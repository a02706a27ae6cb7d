package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/siglab/settlement/config"
	"github.com/siglab/settlement/internal/audit"
	"github.com/siglab/settlement/internal/engine"
	"github.com/siglab/settlement/internal/types"
)

type acceptAllFunds struct{}

func (acceptAllFunds) Collect(types.AssetClass, uint64, string) error  { return nil }
func (acceptAllFunds) Disburse(types.AssetClass, uint64, string) error { return nil }

func testServer(t *testing.T) *Server {
	t.Helper()
	params := types.DefaultParams()
	require.NoError(t, params.Validate())

	eng := engine.New(params, zerolog.Nop(),
		engine.NewStaticAuthorizer([]string{"admin"}),
		engine.SystemClock{}, acceptAllFunds{}, audit.NopSink{})

	cfg := config.APIConfig{
		Host:      "127.0.0.1",
		Port:      0,
		JWTSecret: "test-secret",
		RateLimit: 1000,
		RateBurst: 1000,
		Timeout:   5 * time.Second,
	}
	return NewServer(cfg, eng, zerolog.Nop())
}

func (s *Server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	s := testServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMutationsRequireToken(t *testing.T) {
	s := testServer(t)

	w := s.do(t, http.MethodPost, "/v1/admin/pause", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/v1/admin/pause", "not-a-token", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := NewAuthManager("wrong-secret").IssueToken("admin", time.Hour)
	require.NoError(t, err)
	w = s.do(t, http.MethodPost, "/v1/admin/pause", token, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminFlowOverHTTP(t *testing.T) {
	s := testServer(t)

	admin, err := s.auth.IssueToken("admin", time.Hour)
	require.NoError(t, err)
	stranger, err := s.auth.IssueToken("mallory", time.Hour)
	require.NoError(t, err)

	// Engine authority still applies behind valid tokens.
	w := s.do(t, http.MethodPost, "/v1/admin/pause", stranger, nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/v1/treasury/initialize", admin,
		initTreasuryRequest{MinReserveRatioBps: 2000})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodPost, "/v1/treasury/deposits", admin,
		fundsRequest{Asset: types.AssetStable, Amount: 1000})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/v1/treasury/report", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report types.FinancialReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	require.Equal(t, uint64(1000), report.TotalBalance)

	// Double initialization maps to a state conflict.
	w = s.do(t, http.MethodPost, "/v1/treasury/initialize", admin,
		initTreasuryRequest{MinReserveRatioBps: 2000})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestPerCallerRateLimit(t *testing.T) {
	params := types.DefaultParams()
	require.NoError(t, params.Validate())
	eng := engine.New(params, zerolog.Nop(),
		engine.NewStaticAuthorizer([]string{"admin"}),
		engine.SystemClock{}, acceptAllFunds{}, audit.NopSink{})

	cfg := config.APIConfig{
		Host:      "127.0.0.1",
		Port:      0,
		JWTSecret: "test-secret",
		RateLimit: 0.01,
		RateBurst: 1,
		Timeout:   5 * time.Second,
	}
	s := NewServer(cfg, eng, zerolog.Nop())

	alice, err := s.auth.IssueToken("alice", time.Hour)
	require.NoError(t, err)
	bob, err := s.auth.IssueToken("bob", time.Hour)
	require.NoError(t, err)

	// First request passes the limiter and is denied by engine authority.
	w := s.do(t, http.MethodPost, "/v1/admin/pause", alice, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodPost, "/v1/admin/pause", alice, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	// Buckets are keyed by token subject, not client address: both callers
	// share an IP here, yet exhausting alice's bucket leaves bob's intact.
	w = s.do(t, http.MethodPost, "/v1/admin/pause", bob, nil)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestErrorEnvelope(t *testing.T) {
	s := testServer(t)

	w := s.do(t, http.MethodGet, "/v1/policies/missing", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	var envelope struct {
		Error string `json:"error"`
		Class string `json:"class"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, string(types.ClassState), envelope.Class)
	require.Contains(t, envelope.Error, "missing")
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/events"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/internal/status"
	"github.com/IsacDav66/Criptobot/pkg/config"
	"github.com/IsacDav66/Criptobot/pkg/db"
	binancemkt "github.com/IsacDav66/Criptobot/pkg/market/binance"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		Symbol:            "BTCUSDT",
		CandleInterval:    "1m",
		JWTSecret:         "test-secret",
		DashboardPassword: "hunter2",
	}
	return NewServer(cfg, events.NewBus(), database, status.NewStore(nil),
		command.NewSlot(), monitor.NewMetrics(), binancemkt.NewClient(true))
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func loginToken(t *testing.T, s *Server, password string) string {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"password": password})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	return resp.Token
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestStatusBeforeFirstCycle(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/status", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Ready bool `json:"ready"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Ready {
		t.Error("ready should be false before the first cycle")
	}
}

func TestStatusAfterPublish(t *testing.T) {
	s := newTestServer(t)
	s.Statuses.Publish(status.Snapshot{Symbol: "BTCUSDT", State: "HOLDING", LastAction: audit.ActionHoldPosition})

	w := doJSON(t, s, http.MethodGet, "/api/status", "", nil)
	var resp struct {
		Ready  bool            `json:"ready"`
		Status status.Snapshot `json:"status"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Ready || resp.Status.State != "HOLDING" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHistoryReturnsNewestFirst(t *testing.T) {
	s := newTestServer(t)
	for _, action := range []string{audit.ActionNoEntryPrefilter, audit.ActionBuyOrderPlaced, audit.ActionBuyFilled} {
		row := db.CycleRow{Timestamp: time.Now().UTC(), Action: action, Symbol: "BTCUSDT"}
		if err := s.DB.InsertCycle(context.Background(), row); err != nil {
			t.Fatal(err)
		}
	}

	w := doJSON(t, s, http.MethodGet, "/api/history?limit=2", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Count  int         `json:"count"`
		Cycles []cycleView `json:"cycles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2", resp.Count)
	}
	if resp.Cycles[0].Action != audit.ActionBuyFilled {
		t.Errorf("first row = %s, want the newest", resp.Cycles[0].Action)
	}
}

func TestHistoryRejectsBadLimit(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/api/history?limit=abc", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCommandRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/command", "", gin.H{"command": "FORCE_BUY"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if s.Commands.Peek() != command.None {
		t.Error("unauthorized request must not store a command")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{"password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s, "hunter2")

	w := doJSON(t, s, http.MethodPost, "/api/command", token, gin.H{"command": "FORCE_SELL"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if s.Commands.Peek() != command.ForceSell {
		t.Errorf("slot = %s, want FORCE_SELL", s.Commands.Peek())
	}

	w = doJSON(t, s, http.MethodGet, "/api/command", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Pending command.Forced `json:"pending"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Pending != command.ForceSell {
		t.Errorf("pending = %s", resp.Pending)
	}
}

func TestCommandRejectsUnknown(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s, "hunter2")

	w := doJSON(t, s, http.MethodPost, "/api/command", token, gin.H{"command": "SELL_EVERYTHING"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if s.Commands.Peek() != command.None {
		t.Error("unknown command must not be stored")
	}
}

func TestClearAliasAccepted(t *testing.T) {
	s := newTestServer(t)
	token := loginToken(t, s, "hunter2")

	w := doJSON(t, s, http.MethodPost, "/api/command", token, gin.H{"command": "CLEAR_FORCED_ACTION"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d", w.Code)
	}
	if s.Commands.Peek() != command.Clear {
		t.Errorf("slot = %s, want CLEAR", s.Commands.Peek())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.Metrics.IncrementCycles()

	w := doJSON(t, s, http.MethodGet, "/api/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var snap monitor.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.CyclesCompleted != 1 {
		t.Errorf("cycles = %d", snap.CyclesCompleted)
	}
}

func TestHistorySerializesDecimals(t *testing.T) {
	s := newTestServer(t)
	price := decimal.RequireFromString("29970.01")
	row := db.CycleRow{
		Timestamp: time.Now().UTC(),
		Action:    audit.ActionBuyFilled,
		Symbol:    "BTCUSDT",
		ExecPrice: decimal.NullDecimal{Decimal: price, Valid: true},
	}
	if err := s.DB.InsertCycle(context.Background(), row); err != nil {
		t.Fatal(err)
	}

	w := doJSON(t, s, http.MethodGet, "/api/history", "", nil)
	var resp struct {
		Cycles []cycleView `json:"cycles"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Cycles) != 1 {
		t.Fatalf("rows = %d", len(resp.Cycles))
	}
	got := resp.Cycles[0]
	if got.ExecPrice == nil || *got.ExecPrice != "29970.01" {
		t.Errorf("exec price = %v", got.ExecPrice)
	}
	if got.RealizedPnL != nil {
		t.Error("absent P&L should serialize as null")
	}
}

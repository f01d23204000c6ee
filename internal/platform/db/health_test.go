package db

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(_ context.Context) error { return f.err }

func healthRequest(t *testing.T, p pinger, stats *PoolStats) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := healthHandler(p, func() *PoolStats { return stats })
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec := healthRequest(t, fakePinger{}, &PoolStats{TotalConns: 3, IdleConns: 2, MaxConns: 10})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string    `json:"status"`
		Pool   PoolStats `json:"pool"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("expected status ok, got %q", body.Status)
	}
	if body.Pool.TotalConns != 3 || body.Pool.MaxConns != 10 {
		t.Errorf("expected pool stats echoed back, got %+v", body.Pool)
	}
}

func TestHealthHandler_PingFailureIs503(t *testing.T) {
	rec := healthRequest(t, fakePinger{err: errors.New("connection refused")}, &PoolStats{MaxConns: 10})

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.Status != "unavailable" {
		t.Errorf("expected status unavailable, got %q", body.Status)
	}
	if body.Error == "" {
		t.Error("expected the ping error in the response body")
	}
}

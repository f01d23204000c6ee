package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func newTestClient(srvURL string) *Client {
	return NewClient(srvURL, "sk_test_123", zerolog.New(os.Stderr))
}

func TestCreateCharge_Success(t *testing.T) {
	var gotAuth string
	var gotReq ChargeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Charge{
			ID:          "ch_abc123",
			InvoiceID:   gotReq.InvoiceID,
			AmountCents: gotReq.AmountCents,
			Currency:    gotReq.Currency,
			Status:      "succeeded",
		})
	}))
	defer srv.Close()

	charge, err := newTestClient(srv.URL).CreateCharge(context.Background(), ChargeRequest{
		InvoiceID:   "inv-1",
		AmountCents: 12500,
		Currency:    "USD",
	})
	if err != nil {
		t.Fatalf("CreateCharge() error: %v", err)
	}

	if charge.ID != "ch_abc123" || charge.Status != "succeeded" {
		t.Errorf("unexpected charge: %+v", charge)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Errorf("unexpected Authorization header: %q", gotAuth)
	}
	if gotReq.AmountCents != 12500 {
		t.Errorf("unexpected amount sent: %d", gotReq.AmountCents)
	}
}

func TestCreateCharge_Declined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"insufficient funds"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCharge(context.Background(), ChargeRequest{InvoiceID: "inv-2", AmountCents: 100, Currency: "USD"})
	if !errors.Is(err, ErrChargeDeclined) {
		t.Fatalf("expected ErrChargeDeclined, got %v", err)
	}
}

func TestCreateCharge_ProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CreateCharge(context.Background(), ChargeRequest{InvoiceID: "inv-3", AmountCents: 100, Currency: "USD"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestCreateCharge_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused

	_, err := newTestClient(srv.URL).CreateCharge(context.Background(), ChargeRequest{InvoiceID: "inv-4", AmountCents: 100, Currency: "USD"})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

package notification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr)
}

func TestTextbeltSMSSender_Success(t *testing.T) {
	var gotPhone, gotMessage, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPhone = r.FormValue("phone")
		gotMessage = r.FormValue("message")
		gotKey = r.FormValue("key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"quotaRemaining":40}`))
	}))
	defer srv.Close()

	s := NewTextbeltSMSSender(srv.URL, "test-key", testLogger())
	if err := s.SendSMS(context.Background(), "+15551234567", "your appointment is tomorrow"); err != nil {
		t.Fatalf("SendSMS() error: %v", err)
	}

	if gotPhone != "+15551234567" {
		t.Errorf("unexpected phone: %q", gotPhone)
	}
	if gotMessage != "your appointment is tomorrow" {
		t.Errorf("unexpected message: %q", gotMessage)
	}
	if gotKey != "test-key" {
		t.Errorf("unexpected key: %q", gotKey)
	}
}

func TestTextbeltSMSSender_GatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"Out of quota"}`))
	}))
	defer srv.Close()

	s := NewTextbeltSMSSender(srv.URL, "test-key", testLogger())
	err := s.SendSMS(context.Background(), "+15551234567", "hi")
	if err == nil {
		t.Fatal("expected error for rejected message")
	}
}

func TestTextbeltSMSSender_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewTextbeltSMSSender(srv.URL, "test-key", testLogger())
	if err := s.SendSMS(context.Background(), "+15551234567", "hi"); err == nil {
		t.Fatal("expected error for 500 response")
	}
}

func TestLogEmailSender_AlwaysSucceeds(t *testing.T) {
	s := NewLogEmailSender(testLogger())
	if err := s.SendEmail(context.Background(), "a@example.com", "subj", "body"); err != nil {
		t.Fatalf("SendEmail() error: %v", err)
	}
}

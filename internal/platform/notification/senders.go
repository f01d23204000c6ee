package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// TextbeltSMSSender sends SMS messages through a Textbelt-compatible HTTP API.
type TextbeltSMSSender struct {
	apiURL string
	apiKey string
	client *http.Client
	logger zerolog.Logger
}

// NewTextbeltSMSSender creates a sender pointed at the given API endpoint.
func NewTextbeltSMSSender(apiURL, apiKey string, logger zerolog.Logger) *TextbeltSMSSender {
	return &TextbeltSMSSender{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

type textbeltResponse struct {
	Success        bool   `json:"success"`
	Error          string `json:"error"`
	QuotaRemaining int    `json:"quotaRemaining"`
}

// SendSMS posts the message to the SMS gateway and fails on a non-success
// response.
func (s *TextbeltSMSSender) SendSMS(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("phone", to)
	form.Set("message", body)
	form.Set("key", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode sms response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("sms gateway rejected message: %s", result.Error)
	}

	s.logger.Debug().
		Str("to", to).
		Int("quota_remaining", result.QuotaRemaining).
		Msg("sms sent")
	return nil
}

// LogSMSSender writes SMS messages to the log instead of delivering them.
// Used when no SMS gateway is configured.
type LogSMSSender struct {
	logger zerolog.Logger
}

// NewLogSMSSender creates a LogSMSSender.
func NewLogSMSSender(logger zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

// SendSMS logs the message and reports success.
func (s *LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("body", body).
		Msg("sms (log delivery)")
	return nil
}

// LogEmailSender writes emails to the log instead of delivering them. Used in
// development where no SMTP relay is configured.
type LogEmailSender struct {
	logger zerolog.Logger
}

// NewLogEmailSender creates a LogEmailSender.
func NewLogEmailSender(logger zerolog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

// SendEmail logs the message and reports success.
func (s *LogEmailSender) SendEmail(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("email (log delivery)")
	return nil
}

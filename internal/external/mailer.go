package external

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"shiftdesk/internal/config"
	"shiftdesk/internal/types"
)

// mailAPIBase is the default mail provider API base URL.
// Overridable in tests and local dev via MailConfig.BaseURL.
const mailAPIBase = "https://api.sendgrid.com"

// MailerClient implements the notification gateway by calling the SendGrid v3
// Mail Send API through BaseClient, so every send inherits circuit breaking,
// retries, and domain error mapping. Message bodies are rendered provider-side
// from dynamic templates; this client only supplies the substitution payload.
type MailerClient struct {
	base    *BaseClient
	cfg     config.MailConfig
	baseURL string
	logger  *slog.Logger
}

// NewMailerClient creates a MailerClient from mail configuration. The HTTP
// client timeout is the per-call delivery budget; the reconciler imposes no
// timeout of its own.
func NewMailerClient(cfg config.MailConfig, logger *slog.Logger) *MailerClient {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mailAPIBase
	}

	base := NewBaseClient(
		&http.Client{Timeout: cfg.Timeout},
		"mailer",
		DefaultRetryPolicy(),
	)

	return &MailerClient{
		base:    base,
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// NewMailerClientWithBase creates a MailerClient with a caller-provided
// BaseClient. Used by tests to disable retries or share a breaker.
func NewMailerClientWithBase(base *BaseClient, cfg config.MailConfig, logger *slog.Logger) *MailerClient {
	if logger == nil {
		logger = slog.Default()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = mailAPIBase
	}

	return &MailerClient{
		base:    base,
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// mailPayload is the SendGrid v3 mail/send request body using dynamic
// templates.
type mailPayload struct {
	Personalizations []personalization `json:"personalizations"`
	From             mailAddress       `json:"from"`
	TemplateID       string            `json:"template_id"`
}

type personalization struct {
	To          []mailAddress  `json:"to"`
	DynamicData map[string]any `json:"dynamic_template_data,omitempty"`
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send transmits one templated message and returns the provider message ID
// (X-Message-Id response header). Retries and rate-limit handling happen in
// BaseClient; a non-retryable 4xx is mapped to the mail provider error code
// so per-invoice outcomes carry a meaningful failure reason.
func (m *MailerClient) Send(ctx context.Context, input types.SendInput) (string, error) {
	payload := mailPayload{
		Personalizations: []personalization{{
			To:          []mailAddress{{Email: input.ToAddress}},
			DynamicData: input.Payload,
		}},
		From: mailAddress{
			Email: m.cfg.FromAddress,
			Name:  m.cfg.FromName,
		},
		TemplateID: input.TemplateID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal mail payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3/mail/send", bytes.NewReader(body))
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create mail send request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.APIKey.Unmask())

	resp, err := m.base.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// The provider returns 202 Accepted on success.
	if resp.StatusCode == http.StatusAccepted {
		return resp.Header.Get("X-Message-Id"), nil
	}

	// Drain a bounded slice of the body for the error message.
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	m.logger.Warn("mail provider rejected send",
		"status", resp.StatusCode,
		"to", input.ToAddress,
	)
	return "", types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamMailProvider,
		"mail provider rejected the message",
		nil,
		map[string]any{"status": resp.StatusCode, "body": string(snippet)},
	)
}

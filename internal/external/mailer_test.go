package external

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftdesk/internal/config"
	"shiftdesk/internal/types"
)

func mailerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestMailer(t *testing.T, serverURL string) *MailerClient {
	t.Helper()
	cfg := config.MailConfig{
		APIKey:             types.SecretString("sk_test_mail_key"),
		BaseURL:            serverURL,
		FromAddress:        "billing@shiftdesk.io",
		FromName:           "ShiftDesk Billing",
		ReminderTemplateID: "tpl_overdue",
		Timeout:            5 * time.Second,
	}
	base := NewBaseClient(&http.Client{Timeout: cfg.Timeout}, "mailer-test", testRetryPolicy(1), WithSleepFunc(noSleep))
	return NewMailerClientWithBase(base, cfg, mailerTestLogger())
}

func reminderInput() types.SendInput {
	return types.SendInput{
		ToAddress:  "customer@example.com",
		TemplateID: "tpl_overdue",
		Payload: map[string]any{
			"invoice_id": "inv_1",
			"due_date":   "2024-01-10",
		},
	}
}

func TestMailerClient_Send_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("X-Message-Id", "msg_abc123")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer := newTestMailer(t, server.URL)

	msgID, err := mailer.Send(context.Background(), reminderInput())
	require.NoError(t, err)
	assert.Equal(t, "msg_abc123", msgID)
	assert.Equal(t, "/v3/mail/send", gotPath)
	assert.Equal(t, "Bearer sk_test_mail_key", gotAuth)

	var payload struct {
		Personalizations []struct {
			To          []map[string]string `json:"to"`
			DynamicData map[string]any      `json:"dynamic_template_data"`
		} `json:"personalizations"`
		From       map[string]string `json:"from"`
		TemplateID string            `json:"template_id"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "customer@example.com", payload.Personalizations[0].To[0]["email"])
	assert.Equal(t, "inv_1", payload.Personalizations[0].DynamicData["invoice_id"])
	assert.Equal(t, "2024-01-10", payload.Personalizations[0].DynamicData["due_date"])
	assert.Equal(t, "billing@shiftdesk.io", payload.From["email"])
	assert.Equal(t, "tpl_overdue", payload.TemplateID)
}

func TestMailerClient_Send_ProviderRejectionMapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"invalid template"}]}`))
	}))
	defer server.Close()

	mailer := newTestMailer(t, server.URL)

	_, err := mailer.Send(context.Background(), reminderInput())
	require.Error(t, err)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamMailProvider, appErr.Code)
	assert.Equal(t, http.StatusBadRequest, appErr.Details["status"])
	assert.Contains(t, appErr.Details["body"], "invalid template")
}

func TestMailerClient_Send_UpstreamOutagePropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	mailer := newTestMailer(t, server.URL)

	_, err := mailer.Send(context.Background(), reminderInput())
	require.Error(t, err)
	assert.Equal(t, types.ErrCodeUpstreamUnavailable, appErrorCode(t, err))
}

func TestMailerClient_Send_EmptyMessageIDTolerated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	mailer := newTestMailer(t, server.URL)

	msgID, err := mailer.Send(context.Background(), reminderInput())
	require.NoError(t, err)
	assert.Empty(t, msgID)
}

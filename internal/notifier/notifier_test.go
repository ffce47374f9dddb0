package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/config"
	"github.com/natanael-melo/vigilo/internal/models"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(`{"status":"ok"}`)),
	}
}

func newTestNotifier(rt roundTripFunc) *Notifier {
	n := New(config.NotifyConfig{
		URL:      "https://evo.example.com/",
		Token:    "secret-token",
		Instance: "vps1",
		Number:   "5511999999999",
	}, zap.NewNop())
	n.client = &http.Client{Transport: rt}
	n.now = func() time.Time { return time.Date(2026, 3, 1, 15, 4, 5, 0, time.UTC) }
	return n
}

func TestSend_RequestShape(t *testing.T) {
	var captured *http.Request
	var body sendPayload

	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		captured = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		return okResponse(http.StatusCreated), nil
	})

	require.NoError(t, n.Send(context.Background(), "hello"))

	assert.Equal(t, "https://evo.example.com/message/sendText/vps1", captured.URL.String())
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "secret-token", captured.Header.Get("apikey"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))

	assert.Equal(t, "5511999999999", body.Number)
	assert.Equal(t, "hello", body.Text)
	assert.Equal(t, 1200, body.Options.Delay)
	assert.Equal(t, "composing", body.Options.Presence)
}

func TestSend_RejectedStatus(t *testing.T) {
	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		return okResponse(http.StatusUnauthorized), nil
	})

	assert.Error(t, n.Send(context.Background(), "hello"))
}

func TestSendAlert_Formatting(t *testing.T) {
	var body sendPayload
	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&body)
		return okResponse(http.StatusOK), nil
	})

	alert := models.Alert{Type: models.AlertCPUCritical, Message: "🔴 CPU em 92.00% (limite: 85%)"}
	require.NoError(t, n.SendAlert(context.Background(), alert))

	assert.Contains(t, body.Text, "*ALERTA VIGILO*")
	assert.Contains(t, body.Text, "CPU em 92.00%")
	assert.Contains(t, body.Text, "01/03/2026 15:04:05")
}

func TestSendReport_Formatting(t *testing.T) {
	var body sendPayload
	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&body)
		return okResponse(http.StatusOK), nil
	})

	require.NoError(t, n.SendReport(context.Background(), "corpo do relatório"))

	assert.Contains(t, body.Text, "*RELATÓRIO VIGILO*")
	assert.Contains(t, body.Text, "corpo do relatório")
}

func TestSendStartupAndShutdown(t *testing.T) {
	var texts []string
	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		var body sendPayload
		json.NewDecoder(r.Body).Decode(&body)
		texts = append(texts, body.Text)
		return okResponse(http.StatusOK), nil
	})

	require.NoError(t, n.SendStartup(context.Background(), "vps-01"))
	require.NoError(t, n.SendShutdown(context.Background(), "vps-01", 42))

	require.Len(t, texts, 2)
	assert.Contains(t, texts[0], "*Vigilo Iniciado*")
	assert.Contains(t, texts[0], "vps-01")
	assert.Contains(t, texts[1], "*Vigilo Encerrado*")
	assert.Contains(t, texts[1], "Checagens realizadas: 42")
}

func TestTestConnection(t *testing.T) {
	n := newTestNotifier(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://evo.example.com/instance/connectionState/vps1", r.URL.String())
		assert.Equal(t, "secret-token", r.Header.Get("apikey"))
		return okResponse(http.StatusOK), nil
	})
	assert.True(t, n.TestConnection(context.Background()))

	n = newTestNotifier(func(r *http.Request) (*http.Response, error) {
		return okResponse(http.StatusNotFound), nil
	})
	assert.False(t, n.TestConnection(context.Background()))
}

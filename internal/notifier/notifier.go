// Package notifier delivers chat notifications through the Evolution API
// (WhatsApp) and decides which alerts may go out: a per-alert-type cooldown
// gate suppresses repeats, and a dispatcher forwards admitted alerts to the
// channel with rate-friendly spacing. Reports and startup/shutdown notices
// bypass the gate entirely.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/config"
	"github.com/natanael-melo/vigilo/internal/models"
)

const (
	// requestTimeout is the HTTP timeout for message delivery.
	requestTimeout = 10 * time.Second

	// probeTimeout is the HTTP timeout for the connection probe.
	probeTimeout = 5 * time.Second

	// timestampLayout is the dd/mm/yyyy format used in all outgoing messages.
	timestampLayout = "02/01/2006 15:04:05"
)

// Notifier sends messages to a single recipient via the Evolution API.
type Notifier struct {
	baseURL  string
	token    string
	instance string
	number   string

	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

// New creates a notifier for the configured Evolution API instance.
func New(cfg config.NotifyConfig, logger *zap.Logger) *Notifier {
	return &Notifier{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		token:    cfg.Token,
		instance: cfg.Instance,
		number:   cfg.Number,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
		now:      time.Now,
	}
}

// sendPayload is the Evolution API sendText request body. The delay/presence
// options make the message appear typed rather than machine-blasted.
type sendPayload struct {
	Number  string      `json:"number"`
	Text    string      `json:"text"`
	Options sendOptions `json:"options"`
}

type sendOptions struct {
	Delay    int    `json:"delay"`
	Presence string `json:"presence"`
}

// Send delivers a raw text message. A nil return means the remote endpoint
// acknowledged the message.
func (n *Notifier) Send(ctx context.Context, text string) error {
	payload := sendPayload{
		Number: n.number,
		Text:   text,
		Options: sendOptions{
			Delay:    1200,
			Presence: "composing",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", n.baseURL, n.instance)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", n.token)

	res, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return fmt.Errorf("channel returned %d", res.StatusCode)
	}
	return nil
}

// SendAlert formats and delivers a single alert notification.
func (n *Notifier) SendAlert(ctx context.Context, alert models.Alert) error {
	msg := fmt.Sprintf("⚠️ *ALERTA VIGILO* ⚠️\n\n%s\n\n🕒 %s",
		alert.Message, n.now().Format(timestampLayout))
	return n.Send(ctx, msg)
}

// SendReport delivers a periodic status report. Reports always go out; they
// are never subject to cooldown gating.
func (n *Notifier) SendReport(ctx context.Context, report string) error {
	msg := fmt.Sprintf("📊 *RELATÓRIO VIGILO*\n\n%s\n\n🕒 %s",
		report, n.now().Format(timestampLayout))
	return n.Send(ctx, msg)
}

// SendStartup delivers the agent startup notice.
func (n *Notifier) SendStartup(ctx context.Context, hostname string) error {
	msg := fmt.Sprintf("✅ *Vigilo Iniciado*\n\n🖥️ Host: %s\n🕒 %s",
		hostname, n.now().Format(timestampLayout))
	return n.Send(ctx, msg)
}

// SendShutdown delivers the agent shutdown notice with the cycle counter.
func (n *Notifier) SendShutdown(ctx context.Context, hostname string, checks int) error {
	msg := fmt.Sprintf("🛑 *Vigilo Encerrado*\n\n🖥️ Host: %s\n🕒 %s\n\n📊 Checagens realizadas: %d",
		hostname, n.now().Format(timestampLayout), checks)
	return n.Send(ctx, msg)
}

// TestConnection probes the Evolution API instance state endpoint.
func (n *Notifier) TestConnection(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/instance/connectionState/%s", n.baseURL, n.instance)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("apikey", n.token)

	res, err := n.client.Do(req)
	if err != nil {
		n.logger.Debug("Channel probe failed", zap.Error(err))
		return false
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusOK {
		n.logger.Warn("Channel probe returned unexpected status",
			zap.Int("status", res.StatusCode))
		return false
	}
	return true
}

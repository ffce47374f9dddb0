// Package heartbeat emits liveness signals and agent events to an external
// webhook aggregator (n8n). Every payload carries delivery counters so the
// aggregator can judge the agent's own health.
package heartbeat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/config"
	"github.com/natanael-melo/vigilo/internal/models"
)

// requestTimeout is the HTTP timeout for each webhook delivery.
const requestTimeout = 10 * time.Second

// Sender delivers heartbeats and events to the configured webhook.
type Sender struct {
	url      string
	hostname string

	client *http.Client
	logger *zap.Logger
	now    func() time.Time

	totalSent           int
	totalFailed         int
	consecutiveFailures int
}

// New creates a heartbeat sender for the configured webhook URL.
func New(cfg config.HeartbeatConfig, logger *zap.Logger) *Sender {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "unknown_host"
	}
	return &Sender{
		url:      cfg.URL,
		hostname: hostname,
		client:   &http.Client{Timeout: requestTimeout},
		logger:   logger,
		now:      time.Now,
	}
}

// Hostname returns the agent's host identity used in payloads and notices.
func (s *Sender) Hostname() string { return s.hostname }

// payload is the webhook body. Stats and event fields are present only when
// the corresponding data is attached.
type payload struct {
	AgentName           string          `json:"agent_name"`
	Status              string          `json:"status"`
	Timestamp           int64           `json:"timestamp"`
	ConsecutiveFailures int             `json:"consecutive_failures"`
	TotalSent           int             `json:"total_sent"`
	TotalFailed         int             `json:"total_failed"`
	Stats               *metricsSummary `json:"stats,omitempty"`
	EventType           string          `json:"event_type,omitempty"`
	EventData           map[string]any  `json:"event_data,omitempty"`
}

type metricsSummary struct {
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	UptimeSeconds int64   `json:"uptime_seconds"`
}

// Send delivers a liveness heartbeat, attaching a metrics summary when the
// snapshot is valid. Returns true iff the webhook acknowledged the delivery.
func (s *Sender) Send(ctx context.Context, snap models.MetricsSnapshot) bool {
	p := s.basePayload()
	if snap.OK() {
		p.Stats = &metricsSummary{
			CPUPercent:    snap.CPUPercent,
			RAMPercent:    snap.RAMPercent,
			DiskPercent:   snap.DiskPercent,
			UptimeSeconds: snap.UptimeSecs,
		}
	}
	return s.deliver(ctx, p)
}

// SendEvent delivers a typed agent event ("startup", "shutdown",
// "alerts_generated") with arbitrary event data.
func (s *Sender) SendEvent(ctx context.Context, eventType string, data map[string]any) bool {
	p := s.basePayload()
	p.EventType = eventType
	p.EventData = data
	return s.deliver(ctx, p)
}

// SendStartupEvent reports that the agent has started.
func (s *Sender) SendStartupEvent(ctx context.Context) bool {
	return s.SendEvent(ctx, "startup", map[string]any{
		"message":  "Vigilo Agent iniciado",
		"hostname": s.hostname,
	})
}

// SendShutdownEvent reports that the agent is shutting down.
func (s *Sender) SendShutdownEvent(ctx context.Context, checks int) bool {
	return s.SendEvent(ctx, "shutdown", map[string]any{
		"message":          "Vigilo Agent encerrado",
		"checks_performed": checks,
	})
}

// SendAlertEvent reports an alert batch: how many alerts were detected this
// cycle and which types, regardless of whether the cooldown gate let them
// through to the chat channel.
func (s *Sender) SendAlertEvent(ctx context.Context, count int, types []string) bool {
	return s.SendEvent(ctx, "alerts_generated", map[string]any{
		"alert_count": count,
		"alert_types": types,
	})
}

// TestConnection probes the webhook with a test payload.
func (s *Sender) TestConnection(ctx context.Context) bool {
	p := payload{
		AgentName: s.hostname,
		Status:    "test",
		Timestamp: s.now().Unix(),
	}
	body, err := json.Marshal(p)
	if err != nil {
		return false
	}
	if err := s.post(ctx, body); err != nil {
		s.logger.Debug("Heartbeat probe failed", zap.Error(err))
		return false
	}
	return true
}

func (s *Sender) basePayload() payload {
	return payload{
		AgentName:           s.hostname,
		Status:              "alive",
		Timestamp:           s.now().Unix(),
		ConsecutiveFailures: s.consecutiveFailures,
		TotalSent:           s.totalSent,
		TotalFailed:         s.totalFailed,
	}
}

// deliver posts a payload and updates the delivery counters. Failures are
// logged at escalating severity as consecutive failures accumulate.
func (s *Sender) deliver(ctx context.Context, p payload) bool {
	body, err := json.Marshal(p)
	if err != nil {
		s.logger.Error("Marshaling heartbeat payload failed", zap.Error(err))
		s.recordFailure()
		return false
	}

	if err := s.post(ctx, body); err != nil {
		s.recordFailure()
		switch {
		case s.consecutiveFailures >= 5:
			s.logger.Error("Consecutive heartbeat failures",
				zap.Int("consecutive", s.consecutiveFailures), zap.Error(err))
		case s.consecutiveFailures >= 3:
			s.logger.Warn("Consecutive heartbeat failures",
				zap.Int("consecutive", s.consecutiveFailures), zap.Error(err))
		default:
			s.logger.Warn("Heartbeat delivery failed", zap.Error(err))
		}
		return false
	}

	s.totalSent++
	s.consecutiveFailures = 0
	s.logger.Debug("Heartbeat delivered")
	return true
}

func (s *Sender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting heartbeat: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	switch res.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	}
	return fmt.Errorf("webhook returned %d", res.StatusCode)
}

func (s *Sender) recordFailure() {
	s.consecutiveFailures++
	s.totalFailed++
}

// Stats summarizes delivery counters for the periodic report.
type Stats struct {
	Hostname            string
	TotalSent           int
	TotalFailed         int
	ConsecutiveFailures int
	SuccessRate         float64
}

// Stats returns the current delivery counters and success rate.
func (s *Sender) Stats() Stats {
	rate := 0.0
	if attempts := s.totalSent + s.totalFailed; attempts > 0 {
		rate = math.Round(float64(s.totalSent)/float64(attempts)*100*100) / 100
	}
	return Stats{
		Hostname:            s.hostname,
		TotalSent:           s.totalSent,
		TotalFailed:         s.totalFailed,
		ConsecutiveFailures: s.consecutiveFailures,
		SuccessRate:         rate,
	}
}

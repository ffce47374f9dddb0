package heartbeat

import (
	"context"
	"encoding/json"
	"errors"
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

func response(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func newTestSender(rt roundTripFunc) *Sender {
	s := New(config.HeartbeatConfig{URL: "https://n8n.example.com/webhook/hb"}, zap.NewNop())
	s.hostname = "vps-01"
	s.client = &http.Client{Transport: rt}
	s.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestSend_PayloadWithStats(t *testing.T) {
	var body payload
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://n8n.example.com/webhook/hb", r.URL.String())
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		return response(http.StatusOK), nil
	})

	snap := models.MetricsSnapshot{
		CPUPercent:  42.5,
		RAMPercent:  61.2,
		DiskPercent: 70.1,
		UptimeSecs:  7200,
		Timestamp:   time.Now().UTC(),
	}
	assert.True(t, s.Send(context.Background(), snap))

	assert.Equal(t, "vps-01", body.AgentName)
	assert.Equal(t, "alive", body.Status)
	require.NotNil(t, body.Stats)
	assert.Equal(t, 42.5, body.Stats.CPUPercent)
	assert.Equal(t, int64(7200), body.Stats.UptimeSeconds)
}

func TestSend_ErrorSnapshotOmitsStats(t *testing.T) {
	var body payload
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&body)
		return response(http.StatusNoContent), nil
	})

	snap := models.MetricsSnapshot{Err: "cpu sampling failed"}
	assert.True(t, s.Send(context.Background(), snap))
	assert.Nil(t, body.Stats)
}

func TestSend_FailureCounters(t *testing.T) {
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	for i := 0; i < 4; i++ {
		assert.False(t, s.Send(context.Background(), models.MetricsSnapshot{}))
	}

	stats := s.Stats()
	assert.Equal(t, 0, stats.TotalSent)
	assert.Equal(t, 4, stats.TotalFailed)
	assert.Equal(t, 4, stats.ConsecutiveFailures)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestSend_SuccessResetsConsecutiveFailures(t *testing.T) {
	fail := true
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		if fail {
			return response(http.StatusBadGateway), nil
		}
		return response(http.StatusOK), nil
	})

	s.Send(context.Background(), models.MetricsSnapshot{})
	s.Send(context.Background(), models.MetricsSnapshot{})
	fail = false
	s.Send(context.Background(), models.MetricsSnapshot{})

	stats := s.Stats()
	assert.Equal(t, 1, stats.TotalSent)
	assert.Equal(t, 2, stats.TotalFailed)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
	assert.InDelta(t, 33.33, stats.SuccessRate, 0.01)
}

func TestSendAlertEvent_Payload(t *testing.T) {
	var body payload
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&body)
		return response(http.StatusCreated), nil
	})

	assert.True(t, s.SendAlertEvent(context.Background(), 2, []string{"CPU_CRITICAL", "CONTAINER_NOT_FOUND"}))

	assert.Equal(t, "alerts_generated", body.EventType)
	assert.Equal(t, float64(2), body.EventData["alert_count"])
	types, ok := body.EventData["alert_types"].([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"CPU_CRITICAL", "CONTAINER_NOT_FOUND"}, types)
}

func TestSendStartupAndShutdownEvents(t *testing.T) {
	var events []payload
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		var body payload
		json.NewDecoder(r.Body).Decode(&body)
		events = append(events, body)
		return response(http.StatusOK), nil
	})

	assert.True(t, s.SendStartupEvent(context.Background()))
	assert.True(t, s.SendShutdownEvent(context.Background(), 42))

	require.Len(t, events, 2)
	assert.Equal(t, "startup", events[0].EventType)
	assert.Equal(t, "shutdown", events[1].EventType)
	assert.Equal(t, float64(42), events[1].EventData["checks_performed"])
}

func TestTestConnection(t *testing.T) {
	var body payload
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		json.NewDecoder(r.Body).Decode(&body)
		return response(http.StatusOK), nil
	})

	assert.True(t, s.TestConnection(context.Background()))
	assert.Equal(t, "test", body.Status)

	s = newTestSender(func(r *http.Request) (*http.Response, error) {
		return response(http.StatusInternalServerError), nil
	})
	assert.False(t, s.TestConnection(context.Background()))
}

func TestTestConnection_DoesNotTouchCounters(t *testing.T) {
	s := newTestSender(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	s.TestConnection(context.Background())
	stats := s.Stats()
	assert.Equal(t, 0, stats.TotalFailed)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
}

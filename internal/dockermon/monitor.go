package dockermon

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/models"
)

// Monitor samples container state from the Docker daemon and evaluates the
// configured watch list.
type Monitor struct {
	client *Client
	watch  []string
	logger *zap.Logger
}

// New creates a docker monitor watching the given container names.
func New(client *Client, watch []string, logger *zap.Logger) *Monitor {
	return &Monitor{client: client, watch: watch, logger: logger}
}

// Connected reports whether the Docker daemon is reachable.
func (m *Monitor) Connected(ctx context.Context) bool {
	if err := m.client.Ping(ctx); err != nil {
		m.logger.Debug("Docker ping failed", zap.Error(err))
		return false
	}
	return true
}

// Snapshot lists all containers and builds a snapshot. On failure it returns
// an empty snapshot and logs the error; an unreachable daemon is surfaced to
// the evaluator through Connected, not through the snapshot.
func (m *Monitor) Snapshot(ctx context.Context) models.ContainerSnapshot {
	summaries, err := m.client.ListContainers(ctx)
	if err != nil {
		m.logger.Error("Listing containers failed", zap.Error(err))
		return models.ContainerSnapshot{}
	}

	snap := models.ContainerSnapshot{Containers: make([]models.ContainerRecord, 0, len(summaries))}
	for _, s := range summaries {
		snap.Containers = append(snap.Containers, models.ContainerRecord{
			ID:     shortID(s.ID),
			Name:   containerName(s.Names),
			Status: s.State,
			Image:  s.Image,
			Health: parseHealth(s.Status),
		})
	}

	m.logger.Debug("Containers listed", zap.Int("count", len(snap.Containers)))
	return snap
}

// CheckWatched evaluates the watch list against a fresh snapshot and returns
// the detected container alerts.
func (m *Monitor) CheckWatched(ctx context.Context) []models.Alert {
	if len(m.watch) == 0 {
		return nil
	}
	connected := m.Connected(ctx)
	var snap models.ContainerSnapshot
	if connected {
		snap = m.Snapshot(ctx)
	}
	alerts := EvaluateWatch(connected, snap, m.watch)
	if len(alerts) > 0 {
		m.logger.Warn("Watched container problems detected", zap.Int("count", len(alerts)))
	}
	return alerts
}

// EvaluateWatch checks each watched name, in configured order, against the
// snapshot. An unreachable daemon yields a single connection alert and no
// per-container checks. For each name: missing from the snapshot → not-found;
// present but not running → not-running (mutually exclusive with not-found);
// running with an unhealthy healthcheck → unhealthy. A stopped container is
// never additionally reported unhealthy in the same pass.
func EvaluateWatch(connected bool, snap models.ContainerSnapshot, watch []string) []models.Alert {
	if len(watch) == 0 {
		return nil
	}

	if !connected {
		return []models.Alert{{
			Type:     models.AlertDockerConnection,
			Severity: models.SeverityCritical,
			Message:  "❌ Não foi possível conectar ao Docker",
		}}
	}

	index := snap.ByName()
	var alerts []models.Alert

	for _, name := range watch {
		record, ok := index[name]
		if !ok {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertContainerNotFound,
				Severity:  models.SeverityCritical,
				Container: name,
				Message:   fmt.Sprintf("❌ Container '%s' não encontrado!", name),
			})
			continue
		}

		if record.Status != models.StatusRunning {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertContainerNotRunning,
				Severity:  models.SeverityCritical,
				Container: name,
				Status:    record.Status,
				Message:   fmt.Sprintf("🔴 Container '%s' está %s!", name, strings.ToUpper(record.Status)),
			})
			continue
		}

		if record.Health == models.HealthUnhealthy {
			alerts = append(alerts, models.Alert{
				Type:      models.AlertContainerUnhealthy,
				Severity:  models.SeverityHigh,
				Container: name,
				Message:   fmt.Sprintf("⚠️ Container '%s' está UNHEALTHY!", name),
			})
		}
	}

	return alerts
}

// Summary renders the docker section of the periodic report: aggregate
// running/stopped counts plus a status line per watched container.
func (m *Monitor) Summary(ctx context.Context) string {
	if !m.Connected(ctx) {
		return "❌ *Docker:* Não conectado"
	}

	snap := m.Snapshot(ctx)
	running := snap.Running()
	stopped := len(snap.Containers) - running

	summary := fmt.Sprintf("🐳 *Docker:* %d rodando / %d parados", running, stopped)

	if len(m.watch) == 0 {
		return summary
	}

	index := snap.ByName()
	lines := make([]string, 0, len(m.watch))
	for _, name := range m.watch {
		record, ok := index[name]
		switch {
		case !ok:
			lines = append(lines, "❌ "+name)
		case record.Status == models.StatusRunning:
			lines = append(lines, "🟢 "+name)
		default:
			lines = append(lines, "🔴 "+name)
		}
	}

	return summary + "\n\n*Monitorados:*\n" + strings.Join(lines, "\n")
}

// containerName extracts the primary name, stripping the leading slash the
// Engine API prepends.
func containerName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return strings.TrimPrefix(names[0], "/")
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// parseHealth extracts the healthcheck state from the human status string,
// e.g. "Up 2 hours (healthy)" or "Up 10 seconds (health: starting)".
// Containers without a healthcheck yield an empty string.
func parseHealth(status string) string {
	switch {
	case strings.Contains(status, "(healthy)"):
		return models.HealthHealthy
	case strings.Contains(status, "(unhealthy)"):
		return models.HealthUnhealthy
	case strings.Contains(status, "(health: starting)"):
		return models.HealthStarting
	}
	return ""
}

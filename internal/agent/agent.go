// Package agent implements the monitoring loop: one cycle samples host and
// container state, evaluates alerts, dispatches admitted notifications,
// emits a heartbeat, and sends the periodic report when due. The loop is
// strictly single-flow: one cycle at a time, state carried only by the
// cooldown gate, the report scheduler, and the cycle counter.
package agent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/config"
	"github.com/natanael-melo/vigilo/internal/heartbeat"
	"github.com/natanael-melo/vigilo/internal/models"
	"github.com/natanael-melo/vigilo/internal/notifier"
)

const (
	// cycleTimeout bounds one full cycle's external calls.
	cycleTimeout = 30 * time.Second

	// panicBackoff is the pause after a panicked cycle, to avoid a hot
	// failure loop.
	panicBackoff = 30 * time.Second

	// shutdownTimeout bounds the best-effort shutdown notifications.
	shutdownTimeout = 15 * time.Second
)

// State is the agent lifecycle state.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// SystemMonitor samples host metrics and evaluates thresholds.
type SystemMonitor interface {
	Sample(ctx context.Context) models.MetricsSnapshot
	CheckThresholds(snap models.MetricsSnapshot) []models.Alert
	FormatReport(snap models.MetricsSnapshot) string
}

// ContainerMonitor checks the watched containers and summarizes docker state.
type ContainerMonitor interface {
	Connected(ctx context.Context) bool
	CheckWatched(ctx context.Context) []models.Alert
	Summary(ctx context.Context) string
}

// NotificationChannel delivers force-sent notices and reports. These paths
// bypass cooldown gating unconditionally.
type NotificationChannel interface {
	SendReport(ctx context.Context, report string) error
	SendStartup(ctx context.Context, hostname string) error
	SendShutdown(ctx context.Context, hostname string, checks int) error
	TestConnection(ctx context.Context) bool
}

// TelemetrySink delivers heartbeats and lifecycle events.
type TelemetrySink interface {
	Send(ctx context.Context, snap models.MetricsSnapshot) bool
	SendStartupEvent(ctx context.Context) bool
	SendShutdownEvent(ctx context.Context, checks int) bool
	TestConnection(ctx context.Context) bool
	Hostname() string
	Stats() heartbeat.Stats
}

// AlertDispatcher runs an alert batch through cooldown gating and delivery.
type AlertDispatcher interface {
	Process(ctx context.Context, alerts []models.Alert) notifier.Summary
}

// Agent owns the monitoring loop and its collaborators.
type Agent struct {
	cfg        *config.Config
	system     SystemMonitor
	containers ContainerMonitor
	channel    NotificationChannel
	sink       TelemetrySink
	dispatcher AlertDispatcher
	logger     *zap.Logger

	state      State
	checkCount int
	reporter   *Reporter

	now func() time.Time
}

// New wires an agent from its collaborators.
func New(cfg *config.Config, system SystemMonitor, containers ContainerMonitor,
	channel NotificationChannel, sink TelemetrySink, dispatcher AlertDispatcher,
	logger *zap.Logger) *Agent {
	return &Agent{
		cfg:        cfg,
		system:     system,
		containers: containers,
		channel:    channel,
		sink:       sink,
		dispatcher: dispatcher,
		logger:     logger,
		state:      StateStarting,
		now:        time.Now,
	}
}

// State returns the current lifecycle state.
func (a *Agent) State() State { return a.state }

// CheckCount returns how many cycles have been attempted.
func (a *Agent) CheckCount() int { return a.checkCount }

// Run executes the agent lifecycle. It blocks until the context is
// cancelled, then performs the shutdown sequence and returns.
func (a *Agent) Run(ctx context.Context) {
	a.startup(ctx)

	a.state = StateRunning
	a.logger.Info("Agent running",
		zap.Duration("check_interval", a.cfg.Monitoring.CheckInterval.Duration),
		zap.Duration("report_interval", a.cfg.Monitoring.ReportInterval.Duration),
		zap.Strings("watch_containers", a.cfg.Monitoring.WatchContainers))

	for ctx.Err() == nil {
		panicked := a.runCycle(ctx)

		pause := a.cfg.Monitoring.CheckInterval.Duration
		if panicked {
			// A fault escaped the cycle body. Back off before retrying so a
			// persistent failure cannot spin the loop hot.
			pause = panicBackoff
			a.logger.Info("Backing off after cycle fault", zap.Duration("pause", pause))
		}
		if !sleepCtx(ctx, pause) {
			break
		}
	}

	a.shutdown()
}

// startup probes the external dependencies and announces the agent. Probe
// failures are logged, never fatal: the loop degrades per-dependency.
func (a *Agent) startup(ctx context.Context) {
	a.logger.Info("Starting Vigilo Agent", zap.String("host", a.sink.Hostname()))

	if a.channel.TestConnection(ctx) {
		a.logger.Info("Notification channel connected")
	} else {
		a.logger.Warn("Notification channel probe failed")
	}

	if a.sink.TestConnection(ctx) {
		a.logger.Info("Heartbeat webhook connected")
	} else {
		a.logger.Warn("Heartbeat webhook probe failed")
	}

	if a.containers.Connected(ctx) {
		a.logger.Info("Docker connected")
	} else {
		a.logger.Error("Docker NOT connected, check the socket mount")
	}

	if err := a.channel.SendStartup(ctx, a.sink.Hostname()); err != nil {
		a.logger.Warn("Startup notice failed", zap.Error(err))
	}
	a.sink.SendStartupEvent(ctx)

	a.reporter = NewReporter(a.cfg.Monitoring.ReportInterval.Duration, a.now())
}

// runCycle performs one full check. Any fault inside the cycle body is
// recovered and treated as a no-op for that cycle; the cycle still counts
// as attempted. Returns whether the cycle panicked.
func (a *Agent) runCycle(ctx context.Context) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			a.logger.Error("Cycle failed",
				zap.Int("check", a.checkCount),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	a.checkCount++
	a.logger.Info("Running check", zap.Int("check", a.checkCount))

	cycleCtx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	// 1. Sample host metrics and evaluate thresholds.
	snap := a.system.Sample(cycleCtx)
	systemAlerts := a.system.CheckThresholds(snap)

	// 2. Check watched containers. System alerts dispatch before container
	// alerts.
	containerAlerts := a.containers.CheckWatched(cycleCtx)

	// 3. Dispatch.
	if len(systemAlerts)+len(containerAlerts) > 0 {
		all := append(append([]models.Alert{}, systemAlerts...), containerAlerts...)
		summary := a.dispatcher.Process(cycleCtx, all)
		a.logger.Info("Alerts processed",
			zap.Int("detected", summary.Detected),
			zap.Int("delivered", summary.Delivered))
	} else {
		a.logger.Info("System OK, no alerts")
	}

	// 4. Heartbeat, best-effort.
	a.sink.Send(cycleCtx, snap)

	// 5. Periodic report.
	if a.reporter.IsDue(a.now()) {
		a.sendReport(cycleCtx, snap)
	}

	return false
}

// sendReport composes and force-sends the full status report. The schedule
// only advances on a confirmed send; a failure leaves the report due on the
// next cycle.
func (a *Agent) sendReport(ctx context.Context, snap models.MetricsSnapshot) {
	a.logger.Info("Sending periodic report")

	report := a.composeReport(ctx, snap)
	if err := a.channel.SendReport(ctx, report); err != nil {
		a.logger.Warn("Report delivery failed, will retry next cycle", zap.Error(err))
		return
	}

	a.reporter.MarkSent(a.now())
	a.logger.Info("Report delivered")
}

// composeReport assembles host metrics, docker summary, and agent counters
// into the report body.
func (a *Agent) composeReport(ctx context.Context, snap models.MetricsSnapshot) string {
	stats := a.sink.Stats()
	agentSection := fmt.Sprintf(`📡 *Status do Agente*
✅ Checagens realizadas: %d
📤 Heartbeats enviados: %d
❌ Falhas heartbeat: %d
📊 Taxa de sucesso: %.2f%%`,
		a.checkCount, stats.TotalSent, stats.TotalFailed, stats.SuccessRate)

	return a.system.FormatReport(snap) + "\n\n" + a.containers.Summary(ctx) + "\n\n" + agentSection
}

// shutdown announces termination. Both notices are best-effort: the agent
// reaches StateStopped regardless of their outcome. The parent context is
// already cancelled here, so the sends run on their own bounded context.
func (a *Agent) shutdown() {
	a.state = StateStopping
	a.logger.Info("Stopping Vigilo Agent", zap.Int("checks_performed", a.checkCount))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.channel.SendShutdown(ctx, a.sink.Hostname(), a.checkCount); err != nil {
		a.logger.Warn("Shutdown notice failed", zap.Error(err))
	}
	a.sink.SendShutdownEvent(ctx, a.checkCount)

	a.state = StateStopped
	a.logger.Info("Shutdown complete")
}

// sleepCtx pauses for d or until the context is cancelled. Returns false on
// cancellation so shutdown is never delayed by a pending sleep.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

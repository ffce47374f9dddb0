// Package sysmon samples host resource usage (CPU, RAM, disk, uptime,
// process count) and evaluates it against configured alert thresholds.
// Sampling uses gopsutil for cross-platform metrics.
package sysmon

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/models"
)

const bytesPerGB = 1024 * 1024 * 1024

// Thresholds holds the alert limits for host resources, each a percentage
// in (0,100].
type Thresholds struct {
	CPU  float64
	RAM  float64
	Disk float64
}

// Monitor samples host metrics and checks them against thresholds.
type Monitor struct {
	thresholds Thresholds
	logger     *zap.Logger
}

// New creates a host monitor with the given thresholds.
func New(thresholds Thresholds, logger *zap.Logger) *Monitor {
	return &Monitor{thresholds: thresholds, logger: logger}
}

// Sample collects a snapshot of current host resource usage. It never fails:
// any sampling error yields an error-marked snapshot that downstream
// evaluation treats as carrying no valid values.
func (m *Monitor) Sample(ctx context.Context) models.MetricsSnapshot {
	now := time.Now().UTC()

	// Overall CPU usage, blocking for 1 second to measure a real interval.
	cpuPercents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil || len(cpuPercents) == 0 {
		return m.errSnapshot(now, "cpu", err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return m.errSnapshot(now, "memory", err)
	}

	du, err := disk.UsageWithContext(ctx, "/")
	if err != nil {
		return m.errSnapshot(now, "disk", err)
	}

	uptime, err := host.UptimeWithContext(ctx)
	if err != nil {
		return m.errSnapshot(now, "uptime", err)
	}

	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return m.errSnapshot(now, "processes", err)
	}

	snap := models.MetricsSnapshot{
		CPUPercent:   round2(cpuPercents[0]),
		RAMPercent:   round2(vm.UsedPercent),
		RAMUsedGB:    round2(float64(vm.Used) / bytesPerGB),
		RAMTotalGB:   round2(float64(vm.Total) / bytesPerGB),
		DiskPercent:  round2(du.UsedPercent),
		DiskUsedGB:   round2(float64(du.Used) / bytesPerGB),
		DiskTotalGB:  round2(float64(du.Total) / bytesPerGB),
		UptimeSecs:   int64(uptime),
		ProcessCount: len(pids),
		Timestamp:    now,
	}

	m.logger.Debug("Host metrics sampled",
		zap.Float64("cpu_percent", snap.CPUPercent),
		zap.Float64("ram_percent", snap.RAMPercent),
		zap.Float64("disk_percent", snap.DiskPercent))

	return snap
}

func (m *Monitor) errSnapshot(ts time.Time, domain string, err error) models.MetricsSnapshot {
	msg := fmt.Sprintf("%s sampling failed", domain)
	if err != nil {
		msg = fmt.Sprintf("%s sampling failed: %v", domain, err)
	}
	m.logger.Error("Host metrics sampling failed",
		zap.String("domain", domain), zap.Error(err))
	return models.MetricsSnapshot{Err: msg, Timestamp: ts}
}

// CheckThresholds evaluates a snapshot against the configured thresholds and
// returns the detected alerts in fixed order: CPU, RAM, DISK. A metric alerts
// only when strictly above its threshold. An error-marked snapshot yields no
// alerts so a failed sample never raises false positives.
func (m *Monitor) CheckThresholds(snap models.MetricsSnapshot) []models.Alert {
	if !snap.OK() {
		return nil
	}

	var alerts []models.Alert

	if snap.CPUPercent > m.thresholds.CPU {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertCPUCritical,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("🔴 CPU em %.2f%% (limite: %.0f%%)", snap.CPUPercent, m.thresholds.CPU),
			Value:     snap.CPUPercent,
			Threshold: m.thresholds.CPU,
		})
	}

	if snap.RAMPercent > m.thresholds.RAM {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertRAMCritical,
			Severity:  models.SeverityHigh,
			Message:   fmt.Sprintf("🔴 RAM em %.2f%% (limite: %.0f%%)", snap.RAMPercent, m.thresholds.RAM),
			Value:     snap.RAMPercent,
			Threshold: m.thresholds.RAM,
			Details:   fmt.Sprintf("%.2fGB / %.2fGB", snap.RAMUsedGB, snap.RAMTotalGB),
		})
	}

	if snap.DiskPercent > m.thresholds.Disk {
		alerts = append(alerts, models.Alert{
			Type:      models.AlertDiskCritical,
			Severity:  models.SeverityCritical,
			Message:   fmt.Sprintf("🔴 DISCO em %.2f%% (limite: %.0f%%)", snap.DiskPercent, m.thresholds.Disk),
			Value:     snap.DiskPercent,
			Threshold: m.thresholds.Disk,
			Details:   fmt.Sprintf("%.2fGB / %.2fGB", snap.DiskUsedGB, snap.DiskTotalGB),
		})
	}

	if len(alerts) > 0 {
		m.logger.Warn("Host threshold alerts detected", zap.Int("count", len(alerts)))
	}

	return alerts
}

// FormatReport renders a snapshot as the host section of the periodic report.
func (m *Monitor) FormatReport(snap models.MetricsSnapshot) string {
	if !snap.OK() {
		return fmt.Sprintf("❌ Erro ao coletar dados do sistema: %s", snap.Err)
	}

	cpuEmoji := statusEmoji(snap.CPUPercent, m.thresholds.CPU)
	ramEmoji := statusEmoji(snap.RAMPercent, m.thresholds.RAM)
	diskEmoji := statusEmoji(snap.DiskPercent, m.thresholds.Disk)

	return fmt.Sprintf(`📊 *Relatório do Sistema*

%s *CPU:* %.2f%%
%s *RAM:* %.2f%% (%.2fGB / %.2fGB)
%s *Disco:* %.2f%% (%.2fGB / %.2fGB)

⏱️ *Uptime:* %s
🔢 *Processos:* %d`,
		cpuEmoji, snap.CPUPercent,
		ramEmoji, snap.RAMPercent, snap.RAMUsedGB, snap.RAMTotalGB,
		diskEmoji, snap.DiskPercent, snap.DiskUsedGB, snap.DiskTotalGB,
		FormatUptime(snap.Uptime()),
		snap.ProcessCount)
}

func statusEmoji(value, threshold float64) string {
	if value < threshold {
		return "🟢"
	}
	return "🔴"
}

// FormatUptime renders an uptime duration as "3d 04:05:06".
func FormatUptime(d time.Duration) string {
	total := int64(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Package models defines the data structures shared across the agent:
// host metric snapshots, container snapshots, and alerts.
package models

import "time"

// MetricsSnapshot is a single point-in-time sample of host resource usage.
// A failed sample is represented by a snapshot with Err set; consumers must
// treat such a snapshot as carrying no valid metric values.
type MetricsSnapshot struct {
	CPUPercent   float64   `json:"cpu_percent"`
	RAMPercent   float64   `json:"ram_percent"`
	RAMUsedGB    float64   `json:"ram_used_gb"`
	RAMTotalGB   float64   `json:"ram_total_gb"`
	DiskPercent  float64   `json:"disk_percent"`
	DiskUsedGB   float64   `json:"disk_used_gb"`
	DiskTotalGB  float64   `json:"disk_total_gb"`
	UptimeSecs   int64     `json:"uptime_seconds"`
	ProcessCount int       `json:"process_count"`
	Timestamp    time.Time `json:"timestamp"`
	Err          string    `json:"error,omitempty"`
}

// OK reports whether the snapshot holds valid metric values.
func (s MetricsSnapshot) OK() bool { return s.Err == "" }

// Uptime returns the host uptime as a duration.
func (s MetricsSnapshot) Uptime() time.Duration {
	return time.Duration(s.UptimeSecs) * time.Second
}

// Container status values as reported by the Docker Engine API.
const (
	StatusRunning    = "running"
	StatusExited     = "exited"
	StatusRestarting = "restarting"
	StatusPaused     = "paused"
	StatusCreated    = "created"
	StatusDead       = "dead"
)

// Container health values from the Docker healthcheck state.
const (
	HealthHealthy   = "healthy"
	HealthUnhealthy = "unhealthy"
	HealthStarting  = "starting"
	HealthNone      = "none"
)

// ContainerRecord describes one container observed during a cycle.
// Health is empty when the container has no healthcheck configured.
type ContainerRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Image  string `json:"image"`
	Health string `json:"health,omitempty"`
}

// ContainerSnapshot is the set of containers discovered in one listing,
// in discovery order.
type ContainerSnapshot struct {
	Containers []ContainerRecord
}

// ByName returns an index of the snapshot's containers keyed by name.
func (s ContainerSnapshot) ByName() map[string]ContainerRecord {
	idx := make(map[string]ContainerRecord, len(s.Containers))
	for _, c := range s.Containers {
		idx[c.Name] = c
	}
	return idx
}

// Running returns how many containers in the snapshot are running.
func (s ContainerSnapshot) Running() int {
	n := 0
	for _, c := range s.Containers {
		if c.Status == StatusRunning {
			n++
		}
	}
	return n
}

// Alert severities.
const (
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert type identifiers. The type is the stable identity used for
// cooldown keying.
const (
	AlertCPUCritical         = "CPU_CRITICAL"
	AlertRAMCritical         = "RAM_CRITICAL"
	AlertDiskCritical        = "DISK_CRITICAL"
	AlertDockerConnection    = "DOCKER_CONNECTION_ERROR"
	AlertContainerNotFound   = "CONTAINER_NOT_FOUND"
	AlertContainerNotRunning = "CONTAINER_NOT_RUNNING"
	AlertContainerUnhealthy  = "CONTAINER_UNHEALTHY"
)

// Alert is a detected threshold or availability violation awaiting a
// dispatch decision. Alerts live for a single cycle.
type Alert struct {
	Type      string  `json:"type"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	Container string  `json:"container,omitempty"`
	Status    string  `json:"status,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Details   string  `json:"details,omitempty"`
}

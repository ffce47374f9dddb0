package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCooldown_FirstOccurrenceAdmitted(t *testing.T) {
	gate := NewCooldown(30 * time.Minute)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit("CPU_CRITICAL", t0))
}

func TestCooldown_WindowBoundaries(t *testing.T) {
	cooldown := 1800 * time.Second
	gate := NewCooldown(cooldown)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit("CPU_CRITICAL", t0))
	assert.False(t, gate.Admit("CPU_CRITICAL", t0.Add(cooldown-time.Second)))
	assert.True(t, gate.Admit("CPU_CRITICAL", t0.Add(cooldown)))
}

func TestCooldown_SuppressionPreservesAnchor(t *testing.T) {
	cooldown := 1800 * time.Second
	gate := NewCooldown(cooldown)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit("RAM_CRITICAL", t0))

	// Repeated suppressed attempts must not slide the window forward.
	assert.False(t, gate.Admit("RAM_CRITICAL", t0.Add(60*time.Second)))
	assert.False(t, gate.Admit("RAM_CRITICAL", t0.Add(120*time.Second)))

	// The window is still anchored at t0, so t0+cooldown admits.
	assert.True(t, gate.Admit("RAM_CRITICAL", t0.Add(cooldown)))
}

func TestCooldown_TypesAreIndependent(t *testing.T) {
	gate := NewCooldown(30 * time.Minute)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, gate.Admit("CPU_CRITICAL", t0))
	assert.True(t, gate.Admit("DISK_CRITICAL", t0))
	assert.False(t, gate.Admit("CPU_CRITICAL", t0.Add(time.Minute)))
	assert.True(t, gate.Admit("CONTAINER_NOT_RUNNING", t0.Add(time.Minute)))
}

func TestCooldown_Remaining(t *testing.T) {
	gate := NewCooldown(30 * time.Minute)
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, inCooldown := gate.Remaining("CPU_CRITICAL", t0)
	assert.False(t, inCooldown)

	gate.Admit("CPU_CRITICAL", t0)

	remaining, inCooldown := gate.Remaining("CPU_CRITICAL", t0.Add(10*time.Minute))
	assert.True(t, inCooldown)
	assert.Equal(t, 20*time.Minute, remaining)

	_, inCooldown = gate.Remaining("CPU_CRITICAL", t0.Add(30*time.Minute))
	assert.False(t, inCooldown)
}

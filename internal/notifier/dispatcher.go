package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/natanael-melo/vigilo/internal/models"
)

// sendSpacing is the minimum pause between consecutive channel sends within
// one batch, to respect the channel's rate expectations.
const sendSpacing = 1 * time.Second

// Channel delivers a formatted alert to the chat recipient.
type Channel interface {
	SendAlert(ctx context.Context, alert models.Alert) error
}

// EventSink receives the aggregate alert event for each processed batch.
type EventSink interface {
	SendAlertEvent(ctx context.Context, count int, types []string) bool
}

// Summary describes the outcome of one dispatched batch.
type Summary struct {
	// Detected is the number of alerts handed to the dispatcher.
	Detected int
	// Delivered is the number of alerts admitted by the cooldown gate AND
	// acknowledged by the channel.
	Delivered int
}

// Dispatcher forwards admitted alerts to the notification channel and
// reports each batch to the telemetry sink.
type Dispatcher struct {
	gate    *Cooldown
	channel Channel
	sink    EventSink
	logger  *zap.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewDispatcher creates a dispatcher using the given gate, channel, and sink.
func NewDispatcher(gate *Cooldown, channel Channel, sink EventSink, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		gate:    gate,
		channel: channel,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Process runs one alert batch through the cooldown gate, sends the admitted
// alerts, and forwards an aggregate event listing every detected type —
// admitted or suppressed — to the sink. A channel failure for one alert does
// not abort the rest of the batch. Process never fails; the summary is the
// whole result.
func (d *Dispatcher) Process(ctx context.Context, alerts []models.Alert) Summary {
	summary := Summary{Detected: len(alerts)}
	if len(alerts) == 0 {
		return summary
	}

	sent := 0
	for _, alert := range alerts {
		now := d.now()
		if !d.gate.Admit(alert.Type, now) {
			remaining, _ := d.gate.Remaining(alert.Type, now)
			d.logger.Info("Alert suppressed by cooldown",
				zap.String("type", alert.Type),
				zap.Duration("remaining", remaining))
			continue
		}

		if sent > 0 {
			d.sleep(sendSpacing)
		}
		sent++

		if err := d.channel.SendAlert(ctx, alert); err != nil {
			d.logger.Error("Alert delivery failed",
				zap.String("type", alert.Type),
				zap.Error(err))
			continue
		}

		summary.Delivered++
		d.logger.Info("Alert delivered", zap.String("type", alert.Type))
	}

	types := make([]string, 0, len(alerts))
	for _, alert := range alerts {
		types = append(types, alert.Type)
	}
	d.sink.SendAlertEvent(ctx, len(alerts), types)

	return summary
}

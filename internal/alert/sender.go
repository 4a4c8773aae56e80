package alert

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/bluelight-labs/vigia/internal/history"
	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
	"github.com/bluelight-labs/vigia/internal/notifier"
)

// SendStats summarizes one delivery pass.
type SendStats struct {
	Sent       int
	Suppressed int
	Failed     int
}

// Sender delivers alerts through the dispatcher, suppressing alerts whose
// fingerprint is already in history. Each alert is recorded before delivery
// and marked sent after, so a crash mid-delivery never re-sends on retry.
type Sender struct {
	history    *history.Store
	dispatcher *notifier.Dispatcher
	now        func() time.Time
}

// NewSender creates a Sender over the given history store and dispatcher.
func NewSender(store *history.Store, dispatcher *notifier.Dispatcher) *Sender {
	return &Sender{history: store, dispatcher: dispatcher, now: time.Now}
}

// Send delivers alerts in order. A failed alert is logged and counted but
// does not stop the remainder.
func (s *Sender) Send(ctx context.Context, alerts []*models.Alert) (SendStats, error) {
	var stats SendStats
	for _, alert := range alerts {
		seen, err := s.history.Seen(ctx, alert.ID)
		if err != nil {
			return stats, fmt.Errorf("failed to check alert history: %w", err)
		}
		if seen {
			log.Printf("alert: %s for %s already sent, suppressing", alert.ID, alert.Solicitante)
			metrics.AlertsSuppressedTotal.WithLabelValues(alert.Solicitante).Inc()
			stats.Suppressed++
			continue
		}

		entry := &models.AlertHistoryEntry{
			AlertID:     alert.ID,
			Solicitante: alert.Solicitante,
			IDReport:    alert.IDReport,
			WholeCity:   alert.WholeCity,
			Message:     alert.Message,
		}
		if err := s.history.Record(ctx, entry); err != nil {
			return stats, fmt.Errorf("failed to record alert %s: %w", alert.ID, err)
		}

		if err := s.dispatcher.Dispatch(ctx, alert); err != nil {
			log.Printf("alert: delivery of %s to %s failed: %v", alert.ID, alert.Solicitante, err)
			stats.Failed++
			continue
		}
		if err := s.history.MarkSent(ctx, entry.ID, s.now().UTC()); err != nil {
			return stats, fmt.Errorf("failed to mark alert %s sent: %w", alert.ID, err)
		}
		stats.Sent++
	}

	log.Printf("alert: delivery finished, sent=%d suppressed=%d failed=%d", stats.Sent, stats.Suppressed, stats.Failed)
	if stats.Failed > 0 {
		return stats, fmt.Errorf("%d of %d alerts failed to deliver", stats.Failed, len(alerts))
	}
	return stats, nil
}

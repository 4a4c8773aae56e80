// Package notifier delivers alert messages to requester webhooks.
package notifier

import (
	"context"
	"fmt"
	"sync"

	"github.com/bluelight-labs/vigia/internal/metrics"
	"github.com/bluelight-labs/vigia/internal/models"
)

// Notifier is the interface for all notification channels.
type Notifier interface {
	// Name returns the channel name the alert's requester is matched
	// against (e.g., "discord").
	Name() string
	// Send delivers one alert.
	Send(ctx context.Context, alert *models.Alert) error
	// Close releases any resources.
	Close() error
}

// Dispatcher routes alerts to the notifier registered under the alert's
// requester name.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Get returns a notifier by name.
func (d *Dispatcher) Get(name string) (Notifier, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.notifiers[name]
	return n, ok
}

// Names lists the registered channels.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.notifiers))
	for name := range d.notifiers {
		names = append(names, name)
	}
	return names
}

// Dispatch delivers the alert through the channel matching its requester.
// An unknown requester is an error: a context asked for a channel that was
// never configured.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) error {
	d.mu.RLock()
	n, ok := d.notifiers[alert.Solicitante]
	d.mu.RUnlock()

	if !ok {
		metrics.NotifyErrors.WithLabelValues(alert.Solicitante).Inc()
		return fmt.Errorf("no notifier registered for requester %q", alert.Solicitante)
	}

	if err := n.Send(ctx, alert); err != nil {
		metrics.NotifyErrors.WithLabelValues(alert.Solicitante).Inc()
		return fmt.Errorf("%s: %w", alert.Solicitante, err)
	}

	metrics.AlertsSentTotal.WithLabelValues(alert.Solicitante).Inc()
	return nil
}

// Close closes all registered notifiers.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var errs []error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	d.notifiers = make(map[string]Notifier)

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

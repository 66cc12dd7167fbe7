// Package alerts keeps the list of unacknowledged backend alerts fresh.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tendant/weapon-detection-client/internal/metrics"
	"github.com/tendant/weapon-detection-client/internal/notify"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

// DefaultInterval matches the dashboard refresh period
const DefaultInterval = 30 * time.Second

// ErrAcknowledgeRejected is returned when the backend answers success=false
var ErrAcknowledgeRejected = errors.New("acknowledge rejected")

// Source is the backend API used by the poller
type Source interface {
	Alerts(ctx context.Context) ([]detection.Alert, error)
	AcknowledgeAlert(ctx context.Context, alertID int64) (*detection.AckResponse, error)
}

// Notifier shows transient messages
type Notifier interface {
	Notify(message, severity string, ttl time.Duration) *notify.Handle
}

// Poller periodically refreshes alerts independently of detection submissions
type Poller struct {
	source   Source
	interval time.Duration
	notifier Notifier
	metrics  *metrics.Metrics

	mu     sync.Mutex
	alerts []detection.Alert
	newest int64 // highest alert ID seen; backend IDs only grow
	polled bool
}

// NewPoller creates a poller. interval <= 0 uses DefaultInterval; notifier and m may be nil.
func NewPoller(source Source, interval time.Duration, notifier Notifier, m *metrics.Metrics) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		source:   source,
		interval: interval,
		notifier: notifier,
		metrics:  m,
	}
}

// Run refreshes immediately and then every interval until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh fetches alerts once. On failure the previous list is kept.
func (p *Poller) Refresh(ctx context.Context) error {
	list, err := p.source.Alerts(ctx)
	if err != nil {
		log.Printf("Error loading alerts: %v", err)
		p.metrics.IncAlertPollErrors()
		return err
	}

	p.mu.Lock()
	var fresh []detection.Alert
	newest := p.newest
	for _, a := range list {
		if a.ID <= p.newest {
			continue
		}
		// Alerts already pending at startup are listed but not announced
		if p.polled {
			fresh = append(fresh, a)
		}
		if a.ID > newest {
			newest = a.ID
		}
	}
	p.newest = newest
	p.alerts = list
	p.polled = true
	count := len(list)
	p.mu.Unlock()

	p.metrics.SetActiveAlerts(count)
	for _, a := range fresh {
		p.notify(a.Message, a.Severity)
	}
	return nil
}

// Alerts returns the current alert list
func (p *Poller) Alerts() []detection.Alert {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]detection.Alert(nil), p.alerts...)
}

// Badge returns the number of unacknowledged alerts
func (p *Poller) Badge() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

// Acknowledge acknowledges an alert and removes it from the list on success
func (p *Poller) Acknowledge(ctx context.Context, alertID int64) error {
	resp, err := p.source.AcknowledgeAlert(ctx, alertID)
	if err != nil {
		log.Printf("Error acknowledging alert %d: %v", alertID, err)
		return fmt.Errorf("acknowledge alert %d: %w", alertID, err)
	}
	if !resp.Success {
		log.Printf("Error acknowledging alert %d: %s", alertID, resp.Error)
		return fmt.Errorf("%w: alert %d: %s", ErrAcknowledgeRejected, alertID, resp.Error)
	}

	p.mu.Lock()
	kept := p.alerts[:0:0]
	for _, a := range p.alerts {
		if a.ID != alertID {
			kept = append(kept, a)
		}
	}
	p.alerts = kept
	count := len(kept)
	p.mu.Unlock()

	p.metrics.SetActiveAlerts(count)
	return nil
}

func (p *Poller) notify(message, severity string) {
	if p.notifier == nil {
		return
	}
	p.notifier.Notify(message, severity, notify.AlertTTL)
	p.metrics.IncNotifications(severity)
}

package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tendant/weapon-detection-client/internal/notify"
	"github.com/tendant/weapon-detection-client/pkg/detection"
)

type fakeSource struct {
	mu     sync.Mutex
	alerts []detection.Alert
	err    error
	polls  int
	ack    map[int64]detection.AckResponse
	ackErr error
}

func (f *fakeSource) set(alerts []detection.Alert, err error) {
	f.mu.Lock()
	f.alerts, f.err = alerts, err
	f.mu.Unlock()
}

func (f *fakeSource) pollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

func (f *fakeSource) Alerts(ctx context.Context) ([]detection.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]detection.Alert(nil), f.alerts...), nil
}

func (f *fakeSource) AcknowledgeAlert(ctx context.Context, alertID int64) (*detection.AckResponse, error) {
	if f.ackErr != nil {
		return nil, f.ackErr
	}
	resp, ok := f.ack[alertID]
	if !ok {
		return &detection.AckResponse{Error: "Alert not found"}, nil
	}
	return &resp, nil
}

var (
	weapon = detection.Alert{ID: 1, Type: "weapon_detected", Message: "Weapon detected with 1 object(s) found", Severity: detection.SeverityHigh}
	high   = detection.Alert{ID: 2, Type: "high_confidence", Message: "High confidence weapon detection", Severity: detection.SeverityCritical}
)

func TestRefresh_AnnouncesOnlyNewAlerts(t *testing.T) {
	src := &fakeSource{}
	src.set([]detection.Alert{weapon}, nil)
	n := notify.New(nil)
	defer n.Close()
	p := NewPoller(src, time.Minute, n, nil)
	ctx := context.Background()

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if p.Badge() != 1 {
		t.Fatalf("expected badge 1, got %d", p.Badge())
	}
	if len(n.Active()) != 0 {
		t.Fatalf("alerts pending at startup should not be announced")
	}

	src.set([]detection.Alert{high, weapon}, nil)
	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	active := n.Active()
	if len(active) != 1 || active[0].Severity != detection.SeverityCritical {
		t.Fatalf("expected one critical notification, got %+v", active)
	}

	if err := p.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if len(n.Active()) != 1 {
		t.Fatalf("alerts must be announced once")
	}
}

func TestRefresh_ReturningAlertIsNotAnnouncedAgain(t *testing.T) {
	src := &fakeSource{}
	n := notify.New(nil)
	defer n.Close()
	p := NewPoller(src, time.Minute, n, nil)
	ctx := context.Background()

	p.Refresh(ctx)
	src.set([]detection.Alert{high, weapon}, nil)
	p.Refresh(ctx)
	if len(n.Active()) != 2 {
		t.Fatalf("expected two announcements, got %d", len(n.Active()))
	}

	// alert 1 falls out of the backend's window and comes back later
	src.set([]detection.Alert{high}, nil)
	p.Refresh(ctx)
	src.set([]detection.Alert{high, weapon}, nil)
	p.Refresh(ctx)
	if len(n.Active()) != 2 {
		t.Fatalf("returning alert must not be announced again, got %d", len(n.Active()))
	}
	if p.newest != 2 {
		t.Fatalf("expected newest id 2, got %d", p.newest)
	}
}

func TestRefresh_FailureKeepsPreviousList(t *testing.T) {
	src := &fakeSource{}
	src.set([]detection.Alert{weapon, high}, nil)
	p := NewPoller(src, time.Minute, nil, nil)

	p.Refresh(context.Background())
	src.set(nil, errors.New("unexpected status 401"))
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if p.Badge() != 2 {
		t.Fatalf("expected previous list to be kept, got %d", p.Badge())
	}
}

func TestAcknowledge(t *testing.T) {
	src := &fakeSource{ack: map[int64]detection.AckResponse{1: {Success: true}}}
	src.set([]detection.Alert{weapon, high}, nil)
	p := NewPoller(src, time.Minute, nil, nil)
	ctx := context.Background()
	p.Refresh(ctx)

	if err := p.Acknowledge(ctx, 1); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	list := p.Alerts()
	if len(list) != 1 || list[0].ID != 2 {
		t.Fatalf("expected only alert 2, got %+v", list)
	}

	err := p.Acknowledge(ctx, 2)
	if !errors.Is(err, ErrAcknowledgeRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if p.Badge() != 1 {
		t.Fatalf("rejected acknowledge must keep the alert")
	}

	src.ackErr = errors.New("connection refused")
	if err := p.Acknowledge(ctx, 2); err == nil || errors.Is(err, ErrAcknowledgeRejected) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	src := &fakeSource{}
	p := NewPoller(src, 10*time.Millisecond, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for src.pollCount() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller did not tick")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(&fakeSource{}, 0, nil, nil)
	if p.interval != DefaultInterval {
		t.Fatalf("expected default interval, got %v", p.interval)
	}
}

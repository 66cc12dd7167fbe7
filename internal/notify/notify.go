// Package notify shows short-lived, dismissible messages.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Default lifetimes
const (
	ErrorTTL = 5 * time.Second
	AlertTTL = 10 * time.Second
)

// Notification is a message currently on screen
type Notification struct {
	ID        string
	Message   string
	Severity  string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Listener is called with the live notifications after every change. Calls are
// serialized and never deliver an older snapshot after a newer one; a listener must not
// call back into the Notifier.
type Listener func(active []Notification)

// Notifier tracks live notifications and removes them when their ttl elapses
type Notifier struct {
	mu       sync.Mutex
	seq      []string
	live     map[string]*entry
	listener Listener
	version  uint64 // bumped on every change

	emitMu  sync.Mutex
	emitted uint64
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Handle dismisses one notification
type Handle struct {
	id       string
	notifier *Notifier
}

// New creates a notifier. listener may be nil.
func New(listener Listener) *Notifier {
	return &Notifier{
		live:     make(map[string]*entry),
		listener: listener,
	}
}

// Notify shows message until ttl elapses or the returned handle is dismissed
func (n *Notifier) Notify(message, severity string, ttl time.Duration) *Handle {
	now := time.Now()
	id := uuid.New().String()

	n.mu.Lock()
	e := &entry{n: Notification{
		ID:        id,
		Message:   message,
		Severity:  severity,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}}
	n.live[id] = e
	n.seq = append(n.seq, id)
	e.timer = time.AfterFunc(ttl, func() { n.dismiss(id) })
	snapshot, version := n.changedLocked()
	n.mu.Unlock()

	n.emit(snapshot, version)
	return &Handle{id: id, notifier: n}
}

// Dismiss removes the notification; later calls are no-ops
func (h *Handle) Dismiss() {
	h.notifier.dismiss(h.id)
}

// Active returns live notifications in creation order
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.activeLocked()
}

// Close stops all timers and clears every notification
func (n *Notifier) Close() {
	n.mu.Lock()
	for _, e := range n.live {
		e.timer.Stop()
	}
	n.live = make(map[string]*entry)
	n.seq = nil
	n.mu.Unlock()
}

func (n *Notifier) dismiss(id string) {
	n.mu.Lock()
	e, ok := n.live[id]
	if !ok {
		n.mu.Unlock()
		return
	}
	e.timer.Stop()
	delete(n.live, id)
	for i, s := range n.seq {
		if s == id {
			n.seq = append(n.seq[:i], n.seq[i+1:]...)
			break
		}
	}
	snapshot, version := n.changedLocked()
	n.mu.Unlock()

	n.emit(snapshot, version)
}

func (n *Notifier) activeLocked() []Notification {
	out := make([]Notification, 0, len(n.seq))
	for _, id := range n.seq {
		out = append(out, n.live[id].n)
	}
	return out
}

func (n *Notifier) changedLocked() ([]Notification, uint64) {
	n.version++
	return n.activeLocked(), n.version
}

// emit delivers active unless a newer snapshot has already been delivered
func (n *Notifier) emit(active []Notification, version uint64) {
	if n.listener == nil {
		return
	}
	n.emitMu.Lock()
	defer n.emitMu.Unlock()
	if version <= n.emitted {
		return
	}
	n.emitted = version
	n.listener(active)
}

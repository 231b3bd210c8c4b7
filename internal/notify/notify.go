// Package notify fans status results out to presenters (tray, logs, IPC
// watchers). It is transport-agnostic: subscribers register and receive each
// published status through a non-blocking Notify call.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Kind is the severity of a status.
type Kind int

const (
	Info Kind = iota
	Warning
)

func (k Kind) String() string {
	if k == Warning {
		return "warning"
	}
	return "info"
}

// ParseKind is the inverse of Kind.String; unknown values map to Info.
func ParseKind(s string) Kind {
	if s == "warning" {
		return Warning
	}
	return Info
}

// Status is a message for the user, with optional icon bytes (PNG).
type Status struct {
	Message string
	Kind    Kind
	Icon    []byte
	Time    time.Time
}

// NewInfo returns an Info status stamped with the current time.
func NewInfo(msg string, icon []byte) Status {
	return Status{Message: msg, Kind: Info, Icon: icon, Time: time.Now()}
}

// NewWarning returns a Warning status stamped with the current time.
func NewWarning(msg string) Status {
	return Status{Message: msg, Kind: Warning, Time: time.Now()}
}

// Subscriber is anything that can receive statuses.
type Subscriber interface {
	ID() string
	// Notify delivers a status. Must be non-blocking.
	Notify(Status)
}

// Hub routes statuses to all registered subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]Subscriber
	latest *Status
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]Subscriber)}
}

// Register adds a subscriber.
func (h *Hub) Register(s Subscriber) {
	h.mu.Lock()
	h.subs[s.ID()] = s
	total := len(h.subs)
	h.mu.Unlock()
	slog.Debug("status subscriber registered", "id", s.ID(), "total", total)
}

// Unregister removes a subscriber.
func (h *Hub) Unregister(s Subscriber) {
	h.mu.Lock()
	delete(h.subs, s.ID())
	h.mu.Unlock()
}

// Publish stores st as the latest status and delivers it to every
// subscriber.
func (h *Hub) Publish(st Status) {
	if st.Time.IsZero() {
		st.Time = time.Now()
	}
	h.mu.Lock()
	h.latest = &st
	targets := make([]Subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		targets = append(targets, s)
	}
	h.mu.Unlock()

	for _, s := range targets {
		s.Notify(st)
	}
}

// Latest returns the most recent status, if any.
func (h *Hub) Latest() (Status, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		return Status{}, false
	}
	return *h.latest, true
}

// Chan is a Subscriber backed by a buffered channel. Statuses are dropped
// when the buffer is full.
type Chan struct {
	id string
	C  chan Status
}

// NewChan returns a Chan with the given buffer size.
func NewChan(id string, size int) *Chan {
	return &Chan{id: id, C: make(chan Status, size)}
}

func (c *Chan) ID() string { return c.id }

func (c *Chan) Notify(st Status) {
	select {
	case c.C <- st:
	default:
		slog.Warn("status channel full, dropping", "subscriber", c.id)
	}
}

// Logger writes every status to slog.
type Logger struct{}

func (Logger) ID() string { return "log" }

func (Logger) Notify(st Status) {
	if st.Kind == Warning {
		slog.Warn(st.Message)
		return
	}
	slog.Info(st.Message)
}

package notifier

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-console/pkg/metrics"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Default auto-dismiss timeouts per kind.
const (
	DefaultSuccessDismiss = 3 * time.Second
	DefaultErrorDismiss   = 4 * time.Second
	DefaultInfoDismiss    = 3 * time.Second
)

// Notification is one transient user-facing message.
type Notification struct {
	ID               uuid.UUID
	Message          string
	Kind             Kind
	CreatedAt        time.Time
	AutoDismissAfter time.Duration
}

// Notifier is the surface controllers publish through. Keeping it an
// interface keeps controllers unit-testable without a rendering
// environment.
type Notifier interface {
	Notify(message string, kind Kind)
}

// Queue is the standard Notifier: additive, time-ordered, with per-kind
// auto-dismiss. Dismissal of one notification never affects another, and
// no operation on the queue can fail.
type Queue struct {
	mu      sync.Mutex
	items   []Notification
	timers  map[uuid.UUID]*time.Timer
	dismiss map[Kind]time.Duration

	now       func() time.Time
	afterFunc func(time.Duration, func()) *time.Timer

	metrics *metrics.Metrics
}

type Option func(*Queue)

// WithDismissAfter overrides the auto-dismiss timeout for one kind.
func WithDismissAfter(kind Kind, d time.Duration) Option {
	return func(q *Queue) { q.dismiss[kind] = d }
}

// WithClock injects time sources for deterministic tests.
func WithClock(now func() time.Time, afterFunc func(time.Duration, func()) *time.Timer) Option {
	return func(q *Queue) {
		q.now = now
		q.afterFunc = afterFunc
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		timers: make(map[uuid.UUID]*time.Timer),
		dismiss: map[Kind]time.Duration{
			KindSuccess: DefaultSuccessDismiss,
			KindError:   DefaultErrorDismiss,
			KindInfo:    DefaultInfoDismiss,
		},
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Notify enqueues a notification with the kind's auto-dismiss timeout.
func (q *Queue) Notify(message string, kind Kind) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := Notification{
		ID:               uuid.New(),
		Message:          message,
		Kind:             kind,
		CreatedAt:        q.now(),
		AutoDismissAfter: q.dismiss[kind],
	}
	q.items = append(q.items, n)
	if n.AutoDismissAfter > 0 {
		id := n.ID
		q.timers[id] = q.afterFunc(n.AutoDismissAfter, func() {
			q.Dismiss(id)
		})
	}
	if q.metrics != nil {
		q.metrics.NotificationsEmitted.WithLabelValues(string(kind)).Inc()
	}
}

func (q *Queue) Success(message string) { q.Notify(message, KindSuccess) }
func (q *Queue) Error(message string)   { q.Notify(message, KindError) }
func (q *Queue) Info(message string)    { q.Notify(message, KindInfo) }

// Active returns the live notifications in creation order.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Dismiss removes one notification. Unknown ids are ignored.
func (q *Queue) Dismiss(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.timers[id]; ok {
		t.Stop()
		delete(q.timers, id)
	}
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			break
		}
	}
}

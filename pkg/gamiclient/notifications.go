package gamiclient

import (
	"sync"
	"time"
)

// NotificationKind discriminates the notification variants.
type NotificationKind string

// Notification kinds.
const (
	KindXP      NotificationKind = "xp"
	KindLevelUp NotificationKind = "level_up"
)

// Notification is an ephemeral UI event. The creation timestamp in
// milliseconds doubles as its identity for removal; two notifications created
// within the same millisecond share a key, which removal treats best-effort.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Amount    int              `json:"amount,omitempty"`
	Reason    string           `json:"reason,omitempty"`
	NewLevel  int              `json:"new_level,omitempty"`
	LevelName string           `json:"level_name,omitempty"`
	LevelIcon string           `json:"level_icon,omitempty"`
	Timestamp int64            `json:"timestamp"`
}

// DefaultNotificationTTL is how long a notification stays queued before
// auto-expiring.
const DefaultNotificationTTL = 3 * time.Second

// NotificationQueue is an insertion-ordered list of ephemeral notifications
// with timer-based auto-expiry. Display order is FIFO; removal order is not
// guaranteed.
type NotificationQueue struct {
	mu      sync.Mutex
	entries []Notification
	ttl     time.Duration
	clock   func() time.Time
}

// QueueOption configures a NotificationQueue.
type QueueOption func(*NotificationQueue)

// WithTTL overrides the auto-expiry delay.
func WithTTL(ttl time.Duration) QueueOption {
	return func(q *NotificationQueue) { q.ttl = ttl }
}

// WithClock overrides the timestamp source (useful for testing).
func WithClock(clock func() time.Time) QueueOption {
	return func(q *NotificationQueue) { q.clock = clock }
}

// NewNotificationQueue creates an empty queue.
func NewNotificationQueue(opts ...QueueOption) *NotificationQueue {
	q := &NotificationQueue{
		ttl:   DefaultNotificationTTL,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AddXP enqueues a plain XP-gained notification and returns its timestamp key.
func (q *NotificationQueue) AddXP(amount int, reason string) int64 {
	return q.add(Notification{
		Kind:   KindXP,
		Amount: amount,
		Reason: reason,
	})
}

// AddLevelUp enqueues a level-up notification and returns its timestamp key.
func (q *NotificationQueue) AddLevelUp(newLevel int, levelName, levelIcon string) int64 {
	return q.add(Notification{
		Kind:      KindLevelUp,
		NewLevel:  newLevel,
		LevelName: levelName,
		LevelIcon: levelIcon,
	})
}

func (q *NotificationQueue) add(n Notification) int64 {
	q.mu.Lock()
	n.Timestamp = q.clock().UnixMilli()
	q.entries = append(q.entries, n)
	q.mu.Unlock()

	time.AfterFunc(q.ttl, func() {
		q.Clear(n.Timestamp)
	})

	return n.Timestamp
}

// List returns the queued notifications in insertion order.
func (q *NotificationQueue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	return out
}

// Len returns the number of queued notifications.
func (q *NotificationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Clear removes the first notification with a matching timestamp. Absent
// timestamps are a no-op, so auto-expiry and manual removal never conflict.
func (q *NotificationQueue) Clear(timestamp int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.entries {
		if n.Timestamp == timestamp {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

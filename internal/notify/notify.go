// Package notify shows transient banners. Every banner is removed after a
// fixed lifetime; banners stack and are never deduplicated.
package notify

import (
	"html"
	"strings"
	"sync"
	"time"

	"go-skin-inspector/internal/logger"
	"go-skin-inspector/internal/view"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
)

// DefaultLifetime is how long a banner stays visible
const DefaultLifetime = 5 * time.Second

// scheduleFunc runs f after d and returns a function that cancels it
type scheduleFunc func(d time.Duration, f func()) (cancel func())

func timerSchedule(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}

type Notifier struct {
	store    *view.Store
	lifetime time.Duration
	policy   *bluemonday.Policy
	schedule scheduleFunc
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]func()
}

// NewNotifier creates a notifier writing into store. A non-positive
// lifetime falls back to DefaultLifetime.
func NewNotifier(store *view.Store, lifetime time.Duration) *Notifier {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	return &Notifier{
		store:    store,
		lifetime: lifetime,
		policy:   bluemonday.StrictPolicy(),
		schedule: timerSchedule,
		now:      time.Now,
		pending:  make(map[string]func()),
	}
}

// Lifetime returns the banner lifetime
func (n *Notifier) Lifetime() time.Duration { return n.lifetime }

// Notify appends a banner and schedules its removal. It returns the banner id.
func (n *Notifier) Notify(message string, kind view.Kind) string {
	// Strict policy strips markup but entity-escapes what remains; the page
	// renders messages as plain text, so the escaping is undone here.
	text := strings.TrimSpace(html.UnescapeString(n.policy.Sanitize(message)))
	id := uuid.NewString()

	n.store.Update(func(m *view.Model) {
		m.Notifications = append(m.Notifications, view.Notification{
			ID:        id,
			Message:   text,
			Kind:      kind,
			CreatedAt: n.now(),
		})
	})

	// remove waits on mu, so an early timer still finds its entry
	n.mu.Lock()
	n.pending[id] = n.schedule(n.lifetime, func() { n.remove(id) })
	n.mu.Unlock()

	logger.WithFields(logrus.Fields{
		"notification_id": id,
		"kind":            kind,
		"message":         text,
	}).Debug("Notification shown")
	return id
}

// Success and Error are shorthands for Notify
func (n *Notifier) Success(message string) string { return n.Notify(message, view.KindSuccess) }
func (n *Notifier) Error(message string) string   { return n.Notify(message, view.KindError) }

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	_, ok := n.pending[id]
	delete(n.pending, id)
	n.mu.Unlock()
	if !ok {
		// canceled by Close
		return
	}

	n.store.Update(func(m *view.Model) {
		kept := m.Notifications[:0]
		for _, note := range m.Notifications {
			if note.ID != id {
				kept = append(kept, note)
			}
		}
		m.Notifications = kept
	})
}

// Close cancels pending removals. Banners already shown stay in the model.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, cancel := range n.pending {
		cancel()
		delete(n.pending, id)
	}
}

package ws

import (
	"context"
	"log/slog"
	"sync"

	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

// Channel is a live delivery channel for one user.
type Channel interface {
	Send(event models.Event) error
	Close() error
	Info() ConnInfo
}

// Router maps each user id to at most one live channel. Delivery is best
// effort: events for users without a channel are dropped.
type Router struct {
	mu       sync.RWMutex
	channels map[string]Channel
	log      *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(log *slog.Logger) *Router {
	return &Router{channels: make(map[string]Channel), log: log}
}

// Register makes ch the user's channel. A previous channel is closed.
func (r *Router) Register(userID string, ch Channel) {
	r.mu.Lock()
	prev := r.channels[userID]
	r.channels[userID] = ch
	r.mu.Unlock()

	if prev != nil && prev != ch {
		r.log.Info("ws session replaced", "user_id", userID, "conn_id", prev.Info().ConnID)
		_ = prev.Close()
	}
}

// Unregister drops whatever channel the user has.
func (r *Router) Unregister(userID string) {
	r.mu.Lock()
	delete(r.channels, userID)
	r.mu.Unlock()
}

// Release drops the user's channel only if it is still ch, so a stale
// connection shutting down cannot remove its replacement.
func (r *Router) Release(userID string, ch Channel) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.channels[userID]; ok && current == ch {
		delete(r.channels, userID)
		return true
	}
	return false
}

// Connected reports whether the user currently has a channel.
func (r *Router) Connected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.channels[userID]
	return ok
}

// Notify delivers one event to the user's channel. It reports whether the
// event was written; a failed channel is released and closed.
func (r *Router) Notify(userID, eventName string, payload any) bool {
	r.mu.RLock()
	ch := r.channels[userID]
	r.mu.RUnlock()

	if ch == nil {
		observability.IncNotification(eventName, observability.NotificationDropped)
		return false
	}

	if err := ch.Send(models.Event{Type: eventName, Payload: payload}); err != nil {
		observability.IncNotification(eventName, observability.NotificationFailed)
		r.log.Warn("ws write failed", "user_id", userID, "event", eventName, "error", err)
		r.Release(userID, ch)
		_ = ch.Close()
		publishLifecycle(context.Background(), "ws_error", ch.Info(), err.Error())
		return false
	}
	observability.IncNotification(eventName, observability.NotificationDelivered)
	return true
}

// NotifyAll sends the event to every listed user and returns how many got it.
func (r *Router) NotifyAll(userIDs []string, eventName string, payload any) int {
	delivered := 0
	for _, id := range userIDs {
		if r.Notify(id, eventName, payload) {
			delivered++
		}
	}
	return delivered
}

package notify

import (
	"context"
	"sync"

	"talad/pkg/model"
)

// Emitter pushes a stored notification out to a live delivery surface
// (websocket gateway, mobile push bridge). Delivery is best-effort; the
// Mongo inbox row is the durable copy.
type Emitter interface {
	Emit(ctx context.Context, notification *model.Notification) error
	Close() error
}

// MemoryEmitter keeps emitted notifications per user. Used in tests and
// single-process development setups.
type MemoryEmitter struct {
	mu     sync.Mutex
	byUser map[string][]*model.Notification
}

func NewMemoryEmitter() *MemoryEmitter {
	return &MemoryEmitter{byUser: make(map[string][]*model.Notification)}
}

func (e *MemoryEmitter) Emit(ctx context.Context, notification *model.Notification) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.byUser[notification.UserID] = append(e.byUser[notification.UserID], notification)
	return nil
}

// Emitted returns a copy of everything emitted for the user so far.
func (e *MemoryEmitter) Emitted(userID string) []*model.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*model.Notification, len(e.byUser[userID]))
	copy(out, e.byUser[userID])
	return out
}

func (e *MemoryEmitter) Close() error {
	return nil
}

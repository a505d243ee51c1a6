package cook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tasteos.dev/common"
	"tasteos.dev/db/repository"
)

// Notification is the session update fan-out payload. It carries no
// session body; subscribers refetch state at their own pace.
type Notification struct {
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id"`
	WorkspaceID string    `json:"workspace_id"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NotificationSessionUpdated is the only notification type today.
const NotificationSessionUpdated = "session_updated"

// Bus fans session update notifications out to stream subscribers.
type Bus interface {
	// Publish announces a session change. Best effort; callers treat
	// failures as non-fatal.
	Publish(ctx context.Context, n Notification) error

	// Subscribe returns a channel of notifications for one session.
	// The channel closes when ctx is cancelled.
	Subscribe(ctx context.Context, sessionID string) (<-chan Notification, error)
}

// sessionChannel is the per-session pub/sub channel name.
func sessionChannel(sessionID string) string {
	return fmt.Sprintf("cook:session:%s", sessionID)
}

// repositoryBus adapts a repository.Bus (Redis in production, the
// in-memory repository in tests) to the session notification bus.
type repositoryBus struct {
	bus repository.Bus
}

// NewBus wraps a repository bus.
func NewBus(bus repository.Bus) Bus {
	return &repositoryBus{bus: bus}
}

func (b *repositoryBus) Publish(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return common.Wrap(common.KindFatal, err, "encode notification")
	}
	return b.bus.Publish(ctx, sessionChannel(n.SessionID), payload)
}

func (b *repositoryBus) Subscribe(ctx context.Context, sessionID string) (<-chan Notification, error) {
	raw, err := b.bus.Subscribe(ctx, sessionChannel(sessionID))
	if err != nil {
		return nil, common.Wrap(common.KindTransient, err, "subscribe failed")
	}

	out := make(chan Notification, 8)
	go func() {
		defer close(out)
		for payload := range raw {
			var n Notification
			if err := json.Unmarshal(payload, &n); err != nil {
				common.Logger.WithError(err).Warn("dropping malformed session notification")
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

package refresh

import (
	"context"
	"encoding/json"

	"github.com/northmart/authkit/events"
	"github.com/northmart/authkit/kv"
)

// EventHandler receives the channel name and the decoded JSON payload of a
// lifecycle event.
type EventHandler func(channel string, payload map[string]any)

// SubscribeEvents registers handler for every token and session lifecycle
// channel and returns the subscription handle. Malformed payloads are logged
// and dropped; the delivery loop never stops because of one. Callers own the
// handle and must Close it to unregister.
func (m *Manager) SubscribeEvents(ctx context.Context, handler EventHandler) (*kv.Subscription, error) {
	return m.kv.Subscribe(ctx, func(channel, payload string) {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			m.logger.Error("dropping malformed event payload", "channel", channel, "error", err)
			return
		}
		handler(channel, decoded)
	}, events.Channels()...)
}

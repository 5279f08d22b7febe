package ws

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"conversation-service/internal/observability"
)

const lifecycleRoutingKey = "ws_events.users"

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}

// publishLifecycle counts a connection event and forwards it to the broker.
func publishLifecycle(ctx context.Context, event string, info ConnInfo, reason string) {
	observability.IncWSEvent(event)
	var duration int64
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	_ = observability.PublishEvent(ctx, lifecycleRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": duration,
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

package telemetry

import (
	"context"
	"log/slog"
	"time"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// AuditEmitter publishes audit envelopes for state-changing operations.
type AuditEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	log         *slog.Logger
}

type AuditEnvelope struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	OccurredAt    string       `json:"occurred_at"`
	Service       string       `json:"service"`
	Environment   string       `json:"environment"`
	RequestID     string       `json:"request_id"`
	TraceID       string       `json:"trace_id,omitempty"`
	UserID        *string      `json:"user_id,omitempty"`
	Payload       AuditPayload `json:"payload"`
}

type AuditPayload struct {
	Level          string `json:"level"`
	Text           string `json:"text"`
	Action         string `json:"action,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// AuditRecord is what callers report; the emitter adds the envelope fields.
type AuditRecord struct {
	Level          string
	Text           string
	Action         string
	ConversationID string
	RequestID      string
	TraceID        string
	UserID         *string
}

func NewAuditEmitter(publisher Publisher, routingKey, service, environment string, log *slog.Logger) *AuditEmitter {
	return &AuditEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		log:         log,
	}
}

// Emit publishes the record. Failures are logged and swallowed.
func (e *AuditEmitter) Emit(ctx context.Context, rec AuditRecord) {
	if e == nil || e.publisher == nil {
		return
	}

	envelope := AuditEnvelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		RequestID:     rec.RequestID,
		TraceID:       rec.TraceID,
		UserID:        rec.UserID,
		Payload: AuditPayload{
			Level:          rec.Level,
			Text:           rec.Text,
			Action:         rec.Action,
			ConversationID: rec.ConversationID,
		},
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil && e.log != nil {
		e.log.Warn("audit publish failed", "action", rec.Action, "request_id", rec.RequestID, "error", err)
	}
}

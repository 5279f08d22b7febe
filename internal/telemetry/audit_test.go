package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"conversation-service/internal/logging"
	"conversation-service/internal/mocks"
)

func TestEmitPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.conversation", "conversation-service", "test", logging.Discard())
	user := "u1"

	pub.On("Publish", mock.Anything, "audit.conversation", mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.EventType == "audit_log" &&
			env.Service == "conversation-service" &&
			env.RequestID == "req-1" &&
			*env.UserID == "u1" &&
			env.Payload.Action == "conversation.delete" &&
			env.Payload.ConversationID == "c1"
	})).Return(nil).Once()

	emitter.Emit(context.Background(), AuditRecord{
		Level:          "INFO",
		Text:           "conversation deleted",
		Action:         "conversation.delete",
		ConversationID: "c1",
		RequestID:      "req-1",
		UserID:         &user,
	})

	pub.AssertExpectations(t)
}

func TestEmitSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewAuditEmitter(pub, "audit.conversation", "svc", "test", logging.Discard())
	pub.On("Publish", mock.Anything, "audit.conversation", mock.Anything).Return(assert.AnError).Once()

	emitter.Emit(context.Background(), AuditRecord{Level: "ERROR", Text: "boom"})

	pub.AssertExpectations(t)
}

func TestEmitOnNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	emitter.Emit(context.Background(), AuditRecord{Text: "ignored"})
}

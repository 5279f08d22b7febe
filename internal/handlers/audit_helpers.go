package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"conversation-service/internal/middleware"
	"conversation-service/internal/observability"
	"conversation-service/internal/telemetry"
)

func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(observability.RequestIDKey); id != "" {
		return id
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(observability.RequestIDKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := middleware.UserID(c); userID != "" {
		return &userID
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}
	return nil
}

func traceIDFromContext(c *gin.Context) string {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func (h *ConversationHandler) audit(c *gin.Context, action, conversationID, text string) {
	h.auditor.Emit(c.Request.Context(), telemetry.AuditRecord{
		Level:          "INFO",
		Text:           text,
		Action:         action,
		ConversationID: conversationID,
		RequestID:      requestIDFromContext(c),
		TraceID:        traceIDFromContext(c),
		UserID:         userIDFromContext(c),
	})
}

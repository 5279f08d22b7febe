package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"conversation-service/internal/middleware"
	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
	"conversation-service/internal/telemetry"
)

// ProfileDirectory resolves user ids to profiles. The returned map must hold
// an entry for every requested id even when err is non-nil.
type ProfileDirectory interface {
	ResolveProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error)
}

// Notifier pushes best-effort events to connected users.
type Notifier interface {
	Notify(userID, eventName string, payload any) bool
	NotifyAll(userIDs []string, eventName string, payload any) int
}

// ConversationHandler serves the conversation and message endpoints.
type ConversationHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	directory     ProfileDirectory
	notifier      Notifier
	auditor       *telemetry.AuditEmitter
	log           *slog.Logger
}

// NewConversationHandler builds a ConversationHandler. auditor may be nil.
func NewConversationHandler(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	directory ProfileDirectory,
	notifier Notifier,
	auditor *telemetry.AuditEmitter,
	log *slog.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		messages:      messages,
		directory:     directory,
		notifier:      notifier,
		auditor:       auditor,
		log:           log,
	}
}

// Register mounts the routes on r. Auth middleware must run before them.
func (h *ConversationHandler) Register(r gin.IRoutes) {
	r.GET("/conversations", h.ListConversations)
	r.POST("/conversations", h.CreateConversation)
	r.GET("/conversations/:id", h.GetConversation)
	r.DELETE("/conversations/:id", h.DeleteConversation)
	r.GET("/conversations/:id/messages", h.ListMessages)
	r.POST("/conversations/:id/messages", h.PostMessage)
	r.DELETE("/conversations/:id/messages", h.ClearMessages)
	r.POST("/conversations/:id/read", h.MarkRead)
}

// respondError maps store errors to HTTP statuses. Storage details are
// logged, never returned.
func (h *ConversationHandler) respondError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, repositories.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repositories.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	default:
		h.log.Error("request failed", "op", op, "request_id", requestIDFromContext(c), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	}
}

// participantConversation loads the :id conversation and checks the caller
// belongs to it. It writes the error response itself and returns false.
func (h *ConversationHandler) participantConversation(c *gin.Context, op string) (models.Conversation, string, bool) {
	userID := middleware.UserID(c)
	conv, err := h.conversations.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, op, err)
		return models.Conversation{}, userID, false
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return models.Conversation{}, userID, false
	}
	return conv, userID, true
}

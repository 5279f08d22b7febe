package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conversation-service/internal/middleware"
	"conversation-service/internal/models"
)

type createConversationRequest struct {
	PartnerID    string   `json:"partner_id" binding:"required_without=IsGroup"`
	IsGroup      bool     `json:"is_group"`
	Participants []string `json:"participants" binding:"omitempty,dive,required"`
	Name         string   `json:"name" binding:"max=128"`
}

// ListConversations returns the caller's conversations, most recent first.
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID := middleware.UserID(c)

	summaries, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, "list conversations", err)
		return
	}

	ids := make([]string, 0, len(summaries)*2)
	for _, s := range summaries {
		ids = append(ids, s.Participants...)
		if s.LastMessage != nil {
			ids = append(ids, s.LastMessage.Sender)
		}
	}
	profiles := h.resolveProfiles(c, ids)

	views := make([]models.ConversationView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, conversationView(s.Conversation, s.LastMessage, profiles))
	}
	c.JSON(http.StatusOK, gin.H{"conversations": views})
}

// CreateConversation finds or creates a direct conversation, or creates a
// group when is_group is set.
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := middleware.UserID(c)

	if req.IsGroup {
		h.createGroup(c, userID, req)
		return
	}

	conv, err := h.conversations.FindOrCreateDirect(c.Request.Context(), userID, req.PartnerID)
	if err != nil {
		h.respondError(c, "create direct conversation", err)
		return
	}
	h.audit(c, "conversation.direct", conv.ID, "direct conversation opened")
	c.JSON(http.StatusOK, conversationView(conv, nil, h.resolveProfiles(c, conv.Participants)))
}

func (h *ConversationHandler) createGroup(c *gin.Context, userID string, req createConversationRequest) {
	conv, err := h.conversations.CreateGroup(c.Request.Context(), userID, req.Participants, req.Name)
	if err != nil {
		h.respondError(c, "create group", err)
		return
	}

	view := conversationView(conv, nil, h.resolveProfiles(c, conv.Participants))
	h.notifier.NotifyAll(conv.OtherParticipants(userID), models.EventConversationCreated, view)
	h.audit(c, "conversation.group_create", conv.ID, "group created")
	c.JSON(http.StatusCreated, view)
}

// GetConversation returns one conversation the caller participates in.
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	conv, _, ok := h.participantConversation(c, "get conversation")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, conversationView(conv, nil, h.resolveProfiles(c, conv.Participants)))
}

// DeleteConversation removes the conversation and all its messages for every
// participant.
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	conv, _, ok := h.participantConversation(c, "delete conversation")
	if !ok {
		return
	}

	deleted, err := h.conversations.Delete(c.Request.Context(), conv.ID)
	if err != nil {
		h.respondError(c, "delete conversation", err)
		return
	}

	h.notifier.NotifyAll(deleted.Participants, models.EventConversationDeleted, models.ConversationEventPayload{ConversationID: deleted.ID})
	h.audit(c, "conversation.delete", deleted.ID, "conversation deleted")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
)

type postMessageRequest struct {
	Text    string `json:"text" binding:"required"`
	ReplyTo string `json:"reply_to"`
}

// ListMessages returns the messages visible to the caller, oldest first.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conv, userID, ok := h.participantConversation(c, "list messages")
	if !ok {
		return
	}

	feed, err := h.messages.ListVisible(c.Request.Context(), conv.ID, userID, repositories.MaxVisibleMessages)
	if err != nil {
		h.respondError(c, "list messages", err)
		return
	}

	profiles := h.resolveProfiles(c, feedProfileIDs(feed))
	views := make([]models.MessageView, 0, len(feed))
	for _, msg := range feed {
		views = append(views, messageView(msg, profiles))
	}
	c.JSON(http.StatusOK, gin.H{"messages": views})
}

// PostMessage appends a message and pushes it to the other participants.
func (h *ConversationHandler) PostMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	conv, userID, ok := h.participantConversation(c, "post message")
	if !ok {
		return
	}

	msg, err := h.messages.AppendMessage(c.Request.Context(), models.NewMessage{
		Room:    conv.ID,
		Sender:  userID,
		Text:    req.Text,
		ReplyTo: req.ReplyTo,
	})
	if err != nil {
		h.respondError(c, "post message", err)
		return
	}

	view := messageView(models.FeedMessage{Message: msg}, h.resolveProfiles(c, []string{msg.Sender}))
	h.notifier.NotifyAll(conv.OtherParticipants(userID), models.EventMessage, view)
	c.JSON(http.StatusCreated, view)
}

// ClearMessages hides every message of the conversation for the caller only.
func (h *ConversationHandler) ClearMessages(c *gin.Context) {
	conv, userID, ok := h.participantConversation(c, "clear messages")
	if !ok {
		return
	}

	hidden, err := h.conversations.ClearForUser(c.Request.Context(), conv.ID, userID)
	if err != nil {
		h.respondError(c, "clear messages", err)
		return
	}

	h.notifier.Notify(userID, models.EventConversationCleared, models.ConversationEventPayload{ConversationID: conv.ID})
	h.audit(c, "conversation.clear", conv.ID, "messages cleared for user")
	c.JSON(http.StatusOK, gin.H{"success": true, "hidden": hidden})
}

// MarkRead records that the caller has read the conversation.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conv, userID, ok := h.participantConversation(c, "mark read")
	if !ok {
		return
	}

	updated, err := h.messages.MarkRead(c.Request.Context(), conv.ID, userID)
	if err != nil {
		h.respondError(c, "mark read", err)
		return
	}

	if updated > 0 {
		h.notifier.NotifyAll(conv.OtherParticipants(userID), models.EventMessagesRead, models.MessagesReadPayload{
			ConversationID: conv.ID,
			ReaderID:       userID,
		})
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

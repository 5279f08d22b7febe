package handlers

import (
	"github.com/gin-gonic/gin"

	"conversation-service/internal/models"
)

// resolveProfiles never fails the request: directory errors are logged and
// the directory's placeholders are used.
func (h *ConversationHandler) resolveProfiles(c *gin.Context, ids []string) map[string]models.Profile {
	profiles, err := h.directory.ResolveProfiles(c.Request.Context(), ids)
	if err != nil {
		h.log.Warn("identity lookup failed, using placeholders", "request_id", requestIDFromContext(c), "error", err)
	}
	if profiles == nil {
		profiles = map[string]models.Profile{}
	}
	return profiles
}

func profileOf(profiles map[string]models.Profile, id string) models.Profile {
	if p, ok := profiles[id]; ok {
		return p
	}
	return models.PlaceholderProfile(id)
}

func conversationView(conv models.Conversation, last *models.Message, profiles map[string]models.Profile) models.ConversationView {
	view := models.ConversationView{
		ID:           conv.ID,
		Participants: make([]models.Profile, 0, len(conv.Participants)),
		IsGroup:      conv.IsGroup,
		Name:         conv.Name,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
	for _, id := range conv.Participants {
		view.Participants = append(view.Participants, profileOf(profiles, id))
	}
	if last != nil {
		view.LastMessage = &models.LastMessageView{
			ID:        last.ID,
			Sender:    profileOf(profiles, last.Sender),
			Text:      last.Text,
			CreatedAt: last.CreatedAt,
		}
	}
	return view
}

func messageView(msg models.FeedMessage, profiles map[string]models.Profile) models.MessageView {
	view := models.MessageView{
		ID:        msg.ID,
		Room:      msg.Room,
		Sender:    profileOf(profiles, msg.Sender),
		Text:      msg.Text,
		ReplyTo:   msg.ReplyToMessage,
		ReadBy:    make([]models.Profile, 0, len(msg.ReadBy)),
		CreatedAt: msg.CreatedAt,
	}
	for _, id := range msg.ReadBy {
		view.ReadBy = append(view.ReadBy, profileOf(profiles, id))
	}
	return view
}

func feedProfileIDs(feed []models.FeedMessage) []string {
	ids := make([]string, 0, len(feed))
	for _, msg := range feed {
		ids = append(ids, msg.Sender)
		ids = append(ids, msg.ReadBy...)
	}
	return ids
}

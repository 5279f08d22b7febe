package models

import "time"

// DefaultGroupName is used when a group is created without a name.
const DefaultGroupName = "Group"

// Conversation is either a direct (1:1) conversation or a named group.
type Conversation struct {
	ID            string    `json:"id"`
	Participants  []string  `json:"participants"`
	IsGroup       bool      `json:"is_group"`
	Name          string    `json:"name,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty"`
	LastMessageID string    `json:"last_message_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// OtherParticipants returns every participant except userID, in order.
func (c Conversation) OtherParticipants(userID string) []string {
	others := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

// ConversationSummary is a listing row: the conversation plus its last
// message when that message is visible to the listing user.
type ConversationSummary struct {
	Conversation
	LastMessage *Message
}

// ConversationView is the API shape of a conversation with participants and
// the last message sender resolved through the identity directory.
type ConversationView struct {
	ID           string           `json:"id"`
	Participants []Profile        `json:"participants"`
	IsGroup      bool             `json:"is_group"`
	Name         string           `json:"name,omitempty"`
	LastMessage  *LastMessageView `json:"last_message,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// LastMessageView is the last message preview shown in a listing.
type LastMessageView struct {
	ID        string    `json:"id"`
	Sender    Profile   `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

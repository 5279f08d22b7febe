package models

// Names of the events pushed to connected users.
const (
	EventConversationCreated = "conversation_created"
	EventConversationCleared = "conversation_cleared"
	EventConversationDeleted = "conversation_deleted"
	EventMessage             = "message"
	EventMessagesRead        = "messages_read"
)

// Event is the JSON frame written to a user's websocket.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ConversationEventPayload identifies the conversation an event is about.
type ConversationEventPayload struct {
	ConversationID string `json:"conversationId"`
}

// MessagesReadPayload tells senders that a reader caught up on a conversation.
type MessagesReadPayload struct {
	ConversationID string `json:"conversationId"`
	ReaderID       string `json:"readerId"`
}

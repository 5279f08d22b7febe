package models

import "time"

// Message is a message stored in a conversation ("room"). Only ReadBy and
// HiddenFor change after creation, and both only grow.
type Message struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Sender    string    `json:"sender"`
	Text      string    `json:"text"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	ReadBy    []string  `json:"read_by"`
	HiddenFor []string  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// IsHiddenFor reports whether the message is excluded from userID's view.
func (m Message) IsHiddenFor(userID string) bool {
	for _, u := range m.HiddenFor {
		if u == userID {
			return true
		}
	}
	return false
}

// NewMessage is the input of the message-send path.
type NewMessage struct {
	Room    string
	Sender  string
	Text    string
	ReplyTo string
}

// FeedMessage is a visible message together with the message it replies to.
type FeedMessage struct {
	Message
	ReplyToMessage *Message
}

// MessageView is the API shape of a message with profiles resolved.
type MessageView struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Sender    Profile   `json:"sender"`
	Text      string    `json:"text"`
	ReplyTo   *Message  `json:"reply_to,omitempty"`
	ReadBy    []Profile `json:"read_by"`
	CreatedAt time.Time `json:"created_at"`
}

package repositories

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"conversation-service/internal/models"
)

// MemoryStore is an in-process ConversationRepository and MessageRepository,
// used when no database is configured. One mutex serializes every operation,
// which makes find-or-create atomic without further work.
type MemoryStore struct {
	mu            sync.Mutex
	now           func() time.Time
	last          time.Time
	conversations map[string]*models.Conversation
	pairs         map[string]string // pair key -> conversation id
	rooms         map[string][]*models.Message
	messages      map[string]*models.Message
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		conversations: make(map[string]*models.Conversation),
		pairs:         make(map[string]string),
		rooms:         make(map[string][]*models.Message),
		messages:      make(map[string]*models.Message),
	}
}

// tick returns a strictly increasing timestamp. Caller holds s.mu.
func (s *MemoryStore) tick() time.Time {
	now := s.now().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// ListForUser returns the user's conversations, most recently updated first.
func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list conversations", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]models.ConversationSummary, 0)
	for _, conv := range s.conversations {
		if !conv.HasParticipant(userID) {
			continue
		}
		summary := models.ConversationSummary{Conversation: cloneConversation(*conv)}
		if msg, ok := s.messages[conv.LastMessageID]; ok && !msg.IsHiddenFor(userID) {
			last := cloneMessage(*msg)
			summary.LastMessage = &last
		}
		result = append(result, summary)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].UpdatedAt.After(result[j].UpdatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// FindOrCreateDirect returns the pair's direct conversation, creating it once.
func (s *MemoryStore) FindOrCreateDirect(ctx context.Context, userID, partnerID string) (models.Conversation, error) {
	if err := validateDirect(userID, partnerID); err != nil {
		return models.Conversation{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, unavailable("create direct conversation", err)
	}
	key := PairKey(userID, partnerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.pairs[key]; ok {
		return cloneConversation(*s.conversations[id]), nil
	}

	now := s.tick()
	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Participants: []string{userID, partnerID},
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv
	s.pairs[key] = conv.ID
	return cloneConversation(*conv), nil
}

// CreateGroup creates a named group.
func (s *MemoryStore) CreateGroup(ctx context.Context, creatorID string, participantIDs []string, name string) (models.Conversation, error) {
	participants, err := groupParticipants(creatorID, participantIDs)
	if err != nil {
		return models.Conversation{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Conversation{}, unavailable("create group", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.tick()
	conv := &models.Conversation{
		ID:           uuid.NewString(),
		Participants: participants,
		IsGroup:      true,
		Name:         groupName(name),
		CreatedBy:    creatorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.conversations[conv.ID] = conv
	return cloneConversation(*conv), nil
}

// GetConversation fetches a conversation by id.
func (s *MemoryStore) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	return cloneConversation(*conv), nil
}

// Delete removes the conversation and its messages.
func (s *MemoryStore) Delete(ctx context.Context, conversationID string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return models.Conversation{}, ErrConversationNotFound
	}
	for _, msg := range s.rooms[conversationID] {
		delete(s.messages, msg.ID)
	}
	delete(s.rooms, conversationID)
	delete(s.conversations, conversationID)
	if !conv.IsGroup && len(conv.Participants) == 2 {
		delete(s.pairs, PairKey(conv.Participants[0], conv.Participants[1]))
	}
	return cloneConversation(*conv), nil
}

// ClearForUser hides every message of the conversation for userID.
func (s *MemoryStore) ClearForUser(ctx context.Context, conversationID, userID string) (int64, error) {
	return s.MarkHidden(ctx, conversationID, userID)
}

// AppendMessage stores a message and makes it the conversation's last message.
func (s *MemoryStore) AppendMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return models.Message{}, invalidArgument("text is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[in.Room]
	if !ok {
		return models.Message{}, ErrConversationNotFound
	}
	if !conv.HasParticipant(in.Sender) {
		return models.Message{}, invalidArgument("sender is not a participant")
	}
	if in.ReplyTo != "" {
		target, ok := s.messages[in.ReplyTo]
		if !ok {
			return models.Message{}, invalidArgument("reply target does not exist")
		}
		if target.Room != in.Room {
			return models.Message{}, invalidArgument("reply target belongs to another conversation")
		}
	}

	now := s.tick()
	msg := &models.Message{
		ID:        ulid.Make().String(),
		Room:      in.Room,
		Sender:    in.Sender,
		Text:      in.Text,
		ReplyTo:   in.ReplyTo,
		ReadBy:    []string{},
		CreatedAt: now,
	}
	s.rooms[in.Room] = append(s.rooms[in.Room], msg)
	s.messages[msg.ID] = msg
	conv.LastMessageID = msg.ID
	conv.UpdatedAt = now
	return cloneMessage(*msg), nil
}

// ListVisible returns the messages not hidden for userID, oldest first.
func (s *MemoryStore) ListVisible(ctx context.Context, conversationID, userID string, limit int) ([]models.FeedMessage, error) {
	if limit <= 0 || limit > MaxVisibleMessages {
		limit = MaxVisibleMessages
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	feed := make([]models.FeedMessage, 0)
	for _, msg := range s.rooms[conversationID] {
		if len(feed) == limit {
			break
		}
		if msg.IsHiddenFor(userID) {
			continue
		}
		item := models.FeedMessage{Message: cloneMessage(*msg)}
		if reply, ok := s.messages[msg.ReplyTo]; ok {
			replyCopy := cloneMessage(*reply)
			item.ReplyToMessage = &replyCopy
		}
		feed = append(feed, item)
	}
	return feed, nil
}

// MarkHidden adds userID to hidden_for of every message in the conversation.
func (s *MemoryStore) MarkHidden(ctx context.Context, conversationID, userID string) (int64, error) {
	if userID == "" {
		return 0, invalidArgument("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, msg := range s.rooms[conversationID] {
		if msg.IsHiddenFor(userID) {
			continue
		}
		msg.HiddenFor = append(msg.HiddenFor, userID)
		changed++
	}
	return changed, nil
}

// MarkRead adds userID to read_by of every message userID did not send.
func (s *MemoryStore) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	if userID == "" {
		return 0, invalidArgument("user id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var changed int64
	for _, msg := range s.rooms[conversationID] {
		if msg.Sender == userID || contains(msg.ReadBy, userID) {
			continue
		}
		msg.ReadBy = append(msg.ReadBy, userID)
		changed++
	}
	return changed, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func cloneConversation(c models.Conversation) models.Conversation {
	c.Participants = append([]string(nil), c.Participants...)
	return c
}

func cloneMessage(m models.Message) models.Message {
	m.ReadBy = append([]string{}, m.ReadBy...)
	m.HiddenFor = append([]string(nil), m.HiddenFor...)
	return m
}

var (
	_ ConversationRepository = (*MemoryStore)(nil)
	_ MessageRepository      = (*MemoryStore)(nil)
	_ ConversationRepository = (*ConversationRepo)(nil)
	_ MessageRepository      = (*MessageRepo)(nil)
)

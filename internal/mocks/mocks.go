package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"conversation-service/internal/models"
	"conversation-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ConversationSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ConversationSummary)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) FindOrCreateDirect(ctx context.Context, userID, partnerID string) (models.Conversation, error) {
	args := m.Called(ctx, userID, partnerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, creatorID string, participantIDs []string, name string) (models.Conversation, error) {
	args := m.Called(ctx, creatorID, participantIDs, name)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) Delete(ctx context.Context, conversationID string) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) ClearForUser(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	args := m.Called(ctx, in)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListVisible(ctx context.Context, conversationID, userID string, limit int) ([]models.FeedMessage, error) {
	args := m.Called(ctx, conversationID, userID, limit)
	var feed []models.FeedMessage
	if val := args.Get(0); val != nil {
		feed = val.([]models.FeedMessage)
	}
	return feed, args.Error(1)
}

func (m *MessageRepositoryMock) MarkHidden(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Get(0).(int64), args.Error(1)
}

type DirectoryMock struct {
	mock.Mock
}

func (m *DirectoryMock) ResolveProfiles(ctx context.Context, ids []string) (map[string]models.Profile, error) {
	args := m.Called(ctx, ids)
	var profiles map[string]models.Profile
	if val := args.Get(0); val != nil {
		profiles = val.(map[string]models.Profile)
	}
	return profiles, args.Error(1)
}

type NotifierMock struct {
	mock.Mock
}

func (m *NotifierMock) Notify(userID, eventName string, payload any) bool {
	args := m.Called(userID, eventName, payload)
	return args.Bool(0)
}

func (m *NotifierMock) NotifyAll(userIDs []string, eventName string, payload any) int {
	args := m.Called(userIDs, eventName, payload)
	return args.Int(0)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ interface {
	ResolveProfiles(context.Context, []string) (map[string]models.Profile, error)
} = (*DirectoryMock)(nil)
var _ interface {
	Notify(string, string, any) bool
	NotifyAll([]string, string, any) int
} = (*NotifierMock)(nil)

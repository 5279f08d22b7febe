package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/models"
)

func appendN(t *testing.T, store *MemoryStore, room, sender string, n int) []models.Message {
	t.Helper()
	msgs := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		msg, err := store.AppendMessage(context.Background(), models.NewMessage{Room: room, Sender: sender, Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestMemoryFindOrCreateDirectConcurrentCallsConverge(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const n = 64
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := store.FindOrCreateDirect(ctx, a, b)
			assert.NoError(t, err)
			ids[i] = conv.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	list, err := store.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsGroup)
	assert.ElementsMatch(t, []string{"alice", "bob"}, list[0].Participants)
}

func TestMemoryFindOrCreateDirectRejectsBadInput(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.FindOrCreateDirect(context.Background(), "alice", "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = store.FindOrCreateDirect(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMemoryScenario(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	conv1, err := store.FindOrCreateDirect(ctx, "A", "B")
	require.NoError(t, err)
	again, err := store.FindOrCreateDirect(ctx, "B", "A")
	require.NoError(t, err)
	assert.Equal(t, conv1.ID, again.ID)

	conv2, err := store.CreateGroup(ctx, "A", []string{"A", "B", "C"}, "Trio")
	require.NoError(t, err)
	assert.NotEqual(t, conv1.ID, conv2.ID)
	assert.True(t, conv2.IsGroup)
	assert.Equal(t, "Trio", conv2.Name)

	appendN(t, store, conv1.ID, "A", 2)
	appendN(t, store, conv1.ID, "B", 1)

	changed, err := store.ClearForUser(ctx, conv1.ID, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 3, changed)

	forA, err := store.ListVisible(ctx, conv1.ID, "A", 0)
	require.NoError(t, err)
	assert.Empty(t, forA)

	forB, err := store.ListVisible(ctx, conv1.ID, "B", 0)
	require.NoError(t, err)
	assert.Len(t, forB, 3)
}

func TestMemoryClearIsIdempotentAndLocal(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	conv, err := store.FindOrCreateDirect(ctx, "u", "v")
	require.NoError(t, err)
	appendN(t, store, conv.ID, "v", 4)

	_, err = store.MarkRead(ctx, conv.ID, "u")
	require.NoError(t, err)

	first, err := store.MarkHidden(ctx, conv.ID, "u")
	require.NoError(t, err)
	assert.EqualValues(t, 4, first)
	second, err := store.MarkHidden(ctx, conv.ID, "u")
	require.NoError(t, err)
	assert.Zero(t, second)

	forV, err := store.ListVisible(ctx, conv.ID, "v", 0)
	require.NoError(t, err)
	require.Len(t, forV, 4)
	for _, m := range forV {
		// hiding never drops the read receipt
		assert.Equal(t, []string{"u"}, m.ReadBy)
	}

	// new messages after a clear are visible again
	appendN(t, store, conv.ID, "v", 1)
	forU, err := store.ListVisible(ctx, conv.ID, "u", 0)
	require.NoError(t, err)
	assert.Len(t, forU, 1)
}

func TestMemoryListVisibleOrderingAndCap(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	conv, err := store.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	appendN(t, store, conv.ID, "a", 2500)

	feed, err := store.ListVisible(ctx, conv.ID, "b", 0)
	require.NoError(t, err)
	require.Len(t, feed, MaxVisibleMessages)
	for i := 1; i < len(feed); i++ {
		assert.True(t, feed[i].CreatedAt.After(feed[i-1].CreatedAt))
	}
	assert.Equal(t, "m0", feed[0].Text)
}

func TestMemoryListForUserOrdersByRecency(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.FindOrCreateDirect(ctx, "me", "x")
	require.NoError(t, err)
	second, err := store.FindOrCreateDirect(ctx, "me", "y")
	require.NoError(t, err)
	group, err := store.CreateGroup(ctx, "me", []string{"x", "y"}, "")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultGroupName, group.Name)
	assert.Equal(t, []string{"me", "x", "y"}, group.Participants)

	appendN(t, store, first.ID, "x", 1)

	list, err := store.ListForUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, group.ID, list[1].ID)
	assert.Equal(t, second.ID, list[2].ID)
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].UpdatedAt.After(list[i].UpdatedAt))
	}
	require.NotNil(t, list[0].LastMessage)
	assert.Equal(t, "m0", list[0].LastMessage.Text)

	_, err = store.ClearForUser(ctx, first.ID, "me")
	require.NoError(t, err)
	list, err = store.ListForUser(ctx, "me")
	require.NoError(t, err)
	assert.Nil(t, list[0].LastMessage)

	others, err := store.ListForUser(ctx, "x")
	require.NoError(t, err)
	require.Len(t, others, 2)
	require.NotNil(t, others[0].LastMessage)
}

func TestMemoryCreateGroupNeedsTwoParticipants(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.CreateGroup(context.Background(), "a", []string{"b"}, "solo")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMemoryReplyMustStayInRoom(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	c1, err := store.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	c2, err := store.FindOrCreateDirect(ctx, "a", "c")
	require.NoError(t, err)
	target := appendN(t, store, c1.ID, "a", 1)[0]

	_, err = store.AppendMessage(ctx, models.NewMessage{Room: c2.ID, Sender: "a", Text: "hi", ReplyTo: target.ID})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	reply, err := store.AppendMessage(ctx, models.NewMessage{Room: c1.ID, Sender: "b", Text: "re", ReplyTo: target.ID})
	require.NoError(t, err)

	feed, err := store.ListVisible(ctx, c1.ID, "a", 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, reply.ID, feed[1].ID)
	require.NotNil(t, feed[1].ReplyToMessage)
	assert.Equal(t, target.ID, feed[1].ReplyToMessage.ID)

	_, err = store.AppendMessage(ctx, models.NewMessage{Room: c1.ID, Sender: "c", Text: "intruder"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMemoryDeleteCascades(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	conv, err := store.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	appendN(t, store, conv.ID, "a", 3)

	deleted, err := store.Delete(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, deleted.ID)

	_, err = store.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	feed, err := store.ListVisible(ctx, conv.ID, "a", 0)
	require.NoError(t, err)
	assert.Empty(t, feed)

	_, err = store.Delete(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)

	fresh, err := store.FindOrCreateDirect(ctx, "b", "a")
	require.NoError(t, err)
	assert.NotEqual(t, conv.ID, fresh.ID)
}

func TestMemoryMarkReadIsMonotonic(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	conv, err := store.FindOrCreateDirect(ctx, "a", "b")
	require.NoError(t, err)
	appendN(t, store, conv.ID, "a", 2)
	appendN(t, store, conv.ID, "b", 1)

	changed, err := store.MarkRead(ctx, conv.ID, "b")
	require.NoError(t, err)
	assert.EqualValues(t, 2, changed)
	changed, err = store.MarkRead(ctx, conv.ID, "b")
	require.NoError(t, err)
	assert.Zero(t, changed)

	feed, err := store.ListVisible(ctx, conv.ID, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, feed[0].ReadBy)
	assert.Empty(t, feed[2].ReadBy)
}

package repositories

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-service/internal/db"
	"conversation-service/internal/models"
)

// Integration tests run only when TEST_DB_DSN points at a Postgres database.
// Each test gets its own schema so they can run in parallel.

func mustOpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set; skipping postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	admin, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	require.NoError(t, err)
	schema := "it_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.ExecContext(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
		admin.Close()
	})

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn+sep+"search_path="+schema)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.NoError(t, db.Migrate(ctx, conn))
	return conn
}

func TestPostgresFindOrCreateDirectConcurrentCallsConverge(t *testing.T) {
	t.Parallel()
	conn := mustOpenTestDB(t)
	repo := NewConversationRepo(conn)
	ctx := context.Background()

	const n = 32
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			a, b := "alice", "bob"
			if i%2 == 1 {
				a, b = b, a
			}
			conv, err := repo.FindOrCreateDirect(ctx, a, b)
			ids[i], errs[i] = conv.ID, err
		}(i)
	}
	close(start)
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM conversations WHERE NOT is_group`))
	assert.Equal(t, 1, count)
}

func TestPostgresVisibilityAndCascade(t *testing.T) {
	t.Parallel()
	conn := mustOpenTestDB(t)
	convs := NewConversationRepo(conn)
	msgs := NewMessageRepo(conn)
	ctx := context.Background()

	conv, err := convs.FindOrCreateDirect(ctx, "A", "B")
	require.NoError(t, err)

	var first models.Message
	for i := 0; i < 3; i++ {
		m, err := msgs.AppendMessage(ctx, models.NewMessage{Room: conv.ID, Sender: "A", Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
		if i == 0 {
			first = m
		}
	}
	reply, err := msgs.AppendMessage(ctx, models.NewMessage{Room: conv.ID, Sender: "B", Text: "re", ReplyTo: first.ID})
	require.NoError(t, err)

	read, err := msgs.MarkRead(ctx, conv.ID, "B")
	require.NoError(t, err)
	assert.EqualValues(t, 3, read)

	hidden, err := convs.ClearForUser(ctx, conv.ID, "A")
	require.NoError(t, err)
	assert.EqualValues(t, 4, hidden)
	hidden, err = msgs.MarkHidden(ctx, conv.ID, "A")
	require.NoError(t, err)
	assert.Zero(t, hidden)

	forA, err := msgs.ListVisible(ctx, conv.ID, "A", 0)
	require.NoError(t, err)
	assert.Empty(t, forA)

	forB, err := msgs.ListVisible(ctx, conv.ID, "B", 0)
	require.NoError(t, err)
	require.Len(t, forB, 4)
	assert.Equal(t, []string{"B"}, forB[0].ReadBy)
	assert.Equal(t, reply.ID, forB[3].ID)
	require.NotNil(t, forB[3].ReplyToMessage)
	assert.Equal(t, first.ID, forB[3].ReplyToMessage.ID)

	listA, err := convs.ListForUser(ctx, "A")
	require.NoError(t, err)
	require.Len(t, listA, 1)
	assert.Nil(t, listA[0].LastMessage)
	listB, err := convs.ListForUser(ctx, "B")
	require.NoError(t, err)
	require.NotNil(t, listB[0].LastMessage)
	assert.Equal(t, reply.ID, listB[0].LastMessage.ID)

	_, err = convs.Delete(ctx, conv.ID)
	require.NoError(t, err)
	var left int
	require.NoError(t, conn.GetContext(ctx, &left, `SELECT COUNT(*) FROM messages`))
	assert.Zero(t, left)

	_, err = convs.Delete(ctx, conv.ID)
	assert.ErrorIs(t, err, ErrConversationNotFound)
	_, err = convs.GetConversation(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestPostgresGroupsAndOrdering(t *testing.T) {
	t.Parallel()
	conn := mustOpenTestDB(t)
	convs := NewConversationRepo(conn)
	msgs := NewMessageRepo(conn)
	ctx := context.Background()

	direct, err := convs.FindOrCreateDirect(ctx, "A", "B")
	require.NoError(t, err)
	g1, err := convs.CreateGroup(ctx, "A", []string{"A", "B", "C"}, "Trio")
	require.NoError(t, err)
	g2, err := convs.CreateGroup(ctx, "A", []string{"A", "B", "C"}, "")
	require.NoError(t, err)
	assert.NotEqual(t, g1.ID, g2.ID)
	assert.Equal(t, models.DefaultGroupName, g2.Name)

	_, err = convs.CreateGroup(ctx, "A", []string{"B"}, "x")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = msgs.AppendMessage(ctx, models.NewMessage{Room: direct.ID, Sender: "B", Text: "bump"})
	require.NoError(t, err)

	list, err := convs.ListForUser(ctx, "A")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, direct.ID, list[0].ID)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i].UpdatedAt.After(list[i-1].UpdatedAt))
	}

	_, err = msgs.AppendMessage(ctx, models.NewMessage{Room: g1.ID, Sender: "A", Text: "x", ReplyTo: list[0].LastMessageID})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

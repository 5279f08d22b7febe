package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"conversation-service/internal/models"
)

// MessageRepository owns per-user message visibility and read state.
type MessageRepository interface {
	AppendMessage(ctx context.Context, in models.NewMessage) (models.Message, error)
	ListVisible(ctx context.Context, conversationID, userID string, limit int) ([]models.FeedMessage, error)
	MarkHidden(ctx context.Context, conversationID, userID string) (int64, error)
	MarkRead(ctx context.Context, conversationID, userID string) (int64, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db, now: time.Now}
}

const messageColumns = `id, room, sender, text, reply_to, read_by, hidden_for, created_at`

type messageRow struct {
	ID        string         `db:"id"`
	Room      string         `db:"room"`
	Sender    string         `db:"sender"`
	Text      string         `db:"text"`
	ReplyTo   sql.NullString `db:"reply_to"`
	ReadBy    pq.StringArray `db:"read_by"`
	HiddenFor pq.StringArray `db:"hidden_for"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r messageRow) toModel() models.Message {
	readBy := []string(r.ReadBy)
	if readBy == nil {
		readBy = []string{}
	}
	return models.Message{
		ID:        r.ID,
		Room:      r.Room,
		Sender:    r.Sender,
		Text:      r.Text,
		ReplyTo:   r.ReplyTo.String,
		ReadBy:    readBy,
		HiddenFor: []string(r.HiddenFor),
		CreatedAt: r.CreatedAt,
	}
}

// AppendMessage stores a message and, in the same transaction, makes it the
// conversation's last message and bumps the conversation's updated_at.
func (r *MessageRepo) AppendMessage(ctx context.Context, in models.NewMessage) (models.Message, error) {
	if strings.TrimSpace(in.Text) == "" {
		return models.Message{}, invalidArgument("text is required")
	}
	if !validID(in.Room) {
		return models.Message{}, ErrConversationNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, unavailable("begin append", err)
	}
	defer tx.Rollback()

	var participants pq.StringArray
	err = tx.GetContext(ctx, &participants, `SELECT participants FROM conversations WHERE id=$1 FOR UPDATE`, in.Room)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Message{}, unavailable("lock conversation", err)
	}
	if !(models.Conversation{Participants: participants}).HasParticipant(in.Sender) {
		return models.Message{}, invalidArgument("sender is not a participant")
	}

	if in.ReplyTo != "" {
		var replyRoom string
		err := tx.GetContext(ctx, &replyRoom, `SELECT room FROM messages WHERE id=$1`, in.ReplyTo)
		if errors.Is(err, sql.ErrNoRows) {
			return models.Message{}, invalidArgument("reply target does not exist")
		}
		if err != nil {
			return models.Message{}, unavailable("load reply target", err)
		}
		if replyRoom != in.Room {
			return models.Message{}, invalidArgument("reply target belongs to another conversation")
		}
	}

	now := r.now().UTC()
	var row messageRow
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (id, room, sender, text, reply_to, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING `+messageColumns,
		ulid.Make().String(), in.Room, in.Sender, in.Text, sql.NullString{String: in.ReplyTo, Valid: in.ReplyTo != ""}, now).StructScan(&row)
	if err != nil {
		return models.Message{}, unavailable("insert message", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message_id=$2, updated_at=$3 WHERE id=$1`, in.Room, row.ID, now); err != nil {
		return models.Message{}, unavailable("touch conversation", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Message{}, unavailable("commit append", err)
	}
	return row.toModel(), nil
}

// ListVisible returns the messages of the conversation not hidden for userID,
// oldest first, at most limit of them (MaxVisibleMessages when limit is out of
// range). Each message carries the message it replies to, one level deep.
func (r *MessageRepo) ListVisible(ctx context.Context, conversationID, userID string, limit int) ([]models.FeedMessage, error) {
	if !validID(conversationID) {
		return []models.FeedMessage{}, nil
	}
	if limit <= 0 || limit > MaxVisibleMessages {
		limit = MaxVisibleMessages
	}

	var rows []messageRow
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE room=$1 AND NOT ($2 = ANY(hidden_for))
        ORDER BY created_at ASC, id ASC
        LIMIT $3`
	if err := r.db.SelectContext(ctx, &rows, query, conversationID, userID, limit); err != nil {
		return nil, unavailable("list messages", err)
	}

	replyIDs := make([]string, 0)
	for _, row := range rows {
		if row.ReplyTo.Valid {
			replyIDs = append(replyIDs, row.ReplyTo.String)
		}
	}
	replies, err := messagesByID(ctx, r.db, replyIDs)
	if err != nil {
		return nil, unavailable("load reply targets", err)
	}

	feed := make([]models.FeedMessage, 0, len(rows))
	for _, row := range rows {
		item := models.FeedMessage{Message: row.toModel()}
		if reply, ok := replies[row.ReplyTo.String]; ok {
			item.ReplyToMessage = &reply
		}
		feed = append(feed, item)
	}
	return feed, nil
}

// MarkHidden adds userID to hidden_for of every message in the conversation.
// Repeating the call changes nothing.
func (r *MessageRepo) MarkHidden(ctx context.Context, conversationID, userID string) (int64, error) {
	if !validID(conversationID) {
		return 0, nil
	}
	return markHidden(ctx, r.db, conversationID, userID)
}

// MarkRead adds userID to read_by of every message in the conversation that
// userID did not send.
func (r *MessageRepo) MarkRead(ctx context.Context, conversationID, userID string) (int64, error) {
	if userID == "" {
		return 0, invalidArgument("user id is required")
	}
	if !validID(conversationID) {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read_by = array_append(read_by, $2)
        WHERE room=$1 AND sender <> $2 AND NOT ($2 = ANY(read_by))`, conversationID, userID)
	if err != nil {
		return 0, unavailable("mark read", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("mark read", err)
	}
	return count, nil
}

func messagesByID(ctx context.Context, q sqlx.QueryerContext, ids []string) (map[string]models.Message, error) {
	result := make(map[string]models.Message, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []messageRow
	if err := sqlx.SelectContext(ctx, q, &rows, `SELECT `+messageColumns+` FROM messages WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row.toModel()
	}
	return result, nil
}

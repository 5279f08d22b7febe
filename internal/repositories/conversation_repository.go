package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"conversation-service/internal/models"
	"conversation-service/internal/observability"
)

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	FindOrCreateDirect(ctx context.Context, userID, partnerID string) (models.Conversation, error)
	CreateGroup(ctx context.Context, creatorID string, participantIDs []string, name string) (models.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (models.Conversation, error)
	Delete(ctx context.Context, conversationID string) (models.Conversation, error)
	ClearForUser(ctx context.Context, conversationID, userID string) (int64, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db, now: time.Now}
}

const conversationColumns = `id, participants, is_group, name, created_by, last_message_id, created_at, updated_at`

type conversationRow struct {
	ID            string         `db:"id"`
	Participants  pq.StringArray `db:"participants"`
	IsGroup       bool           `db:"is_group"`
	Name          sql.NullString `db:"name"`
	CreatedBy     sql.NullString `db:"created_by"`
	LastMessageID sql.NullString `db:"last_message_id"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (r conversationRow) toModel() models.Conversation {
	return models.Conversation{
		ID:            r.ID,
		Participants:  []string(r.Participants),
		IsGroup:       r.IsGroup,
		Name:          r.Name.String,
		CreatedBy:     r.CreatedBy.String,
		LastMessageID: r.LastMessageID.String,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// ListForUser returns the user's conversations, most recently updated first.
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	var rows []conversationRow
	query := `SELECT ` + conversationColumns + ` FROM conversations
        WHERE $1 = ANY(participants)
        ORDER BY updated_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, unavailable("list conversations", err)
	}

	lastIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.LastMessageID.Valid {
			lastIDs = append(lastIDs, row.LastMessageID.String)
		}
	}
	lastByID, err := messagesByID(ctx, r.db, lastIDs)
	if err != nil {
		return nil, unavailable("load last messages", err)
	}

	result := make([]models.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		summary := models.ConversationSummary{Conversation: row.toModel()}
		if msg, ok := lastByID[row.LastMessageID.String]; ok && !msg.IsHiddenFor(userID) {
			summary.LastMessage = &msg
		}
		result = append(result, summary)
	}
	return result, nil
}

// FindOrCreateDirect returns the direct conversation of the pair, creating it
// if needed. Concurrent callers for the same pair converge on one row: the
// insert yields to the partial unique index and the loser re-reads the winner.
func (r *ConversationRepo) FindOrCreateDirect(ctx context.Context, userID, partnerID string) (models.Conversation, error) {
	if err := validateDirect(userID, partnerID); err != nil {
		return models.Conversation{}, err
	}
	key := PairKey(userID, partnerID)

	for attempt := 0; attempt < 3; attempt++ {
		conv, err := r.getDirect(ctx, key)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrConversationNotFound) {
			return models.Conversation{}, err
		}

		now := r.now().UTC()
		var row conversationRow
		err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (id, participants, is_group, created_by, pair_key, created_at, updated_at)
            VALUES ($1, $2, FALSE, $3, $4, $5, $5)
            ON CONFLICT (pair_key) WHERE NOT is_group DO NOTHING
            RETURNING `+conversationColumns,
			uuid.NewString(), pq.Array([]string{userID, partnerID}), userID, key, now).StructScan(&row)
		switch {
		case err == nil:
			return row.toModel(), nil
		case errors.Is(err, sql.ErrNoRows), isUniqueViolation(err):
			// another request created the pair first
			observability.IncDirectCreateConflict()
		default:
			return models.Conversation{}, unavailable("create direct conversation", err)
		}
	}
	// the winner was deleted between our insert and re-read every time
	return models.Conversation{}, unavailable("create direct conversation", errors.New("conversation kept disappearing"))
}

func (r *ConversationRepo) getDirect(ctx context.Context, key string) (models.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+conversationColumns+` FROM conversations WHERE pair_key=$1 AND NOT is_group`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, unavailable("get direct conversation", err)
	}
	return row.toModel(), nil
}

// CreateGroup creates a named group. Groups have no uniqueness constraint.
func (r *ConversationRepo) CreateGroup(ctx context.Context, creatorID string, participantIDs []string, name string) (models.Conversation, error) {
	participants, err := groupParticipants(creatorID, participantIDs)
	if err != nil {
		return models.Conversation{}, err
	}

	now := r.now().UTC()
	var row conversationRow
	err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (id, participants, is_group, name, created_by, created_at, updated_at)
        VALUES ($1, $2, TRUE, $3, $4, $5, $5)
        RETURNING `+conversationColumns,
		uuid.NewString(), pq.Array(participants), groupName(name), creatorID, now).StructScan(&row)
	if err != nil {
		return models.Conversation{}, unavailable("create group", err)
	}
	return row.toModel(), nil
}

// GetConversation fetches a conversation by id.
func (r *ConversationRepo) GetConversation(ctx context.Context, conversationID string) (models.Conversation, error) {
	if !validID(conversationID) {
		return models.Conversation{}, ErrConversationNotFound
	}
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT `+conversationColumns+` FROM conversations WHERE id=$1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, unavailable("get conversation", err)
	}
	return row.toModel(), nil
}

// Delete removes the conversation and all of its messages in one transaction
// and returns the deleted conversation.
func (r *ConversationRepo) Delete(ctx context.Context, conversationID string) (models.Conversation, error) {
	if !validID(conversationID) {
		return models.Conversation{}, ErrConversationNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Conversation{}, unavailable("begin delete", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room=$1`, conversationID); err != nil {
		return models.Conversation{}, unavailable("delete messages", err)
	}

	var row conversationRow
	err = tx.QueryRowxContext(ctx, `DELETE FROM conversations WHERE id=$1 RETURNING `+conversationColumns, conversationID).StructScan(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	if err != nil {
		return models.Conversation{}, unavailable("delete conversation", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Conversation{}, unavailable("commit delete", err)
	}
	return row.toModel(), nil
}

// ClearForUser hides every message of the conversation for userID. It leaves
// the conversation row and other participants' views untouched.
func (r *ConversationRepo) ClearForUser(ctx context.Context, conversationID, userID string) (int64, error) {
	if !validID(conversationID) {
		return 0, nil
	}
	return markHidden(ctx, r.db, conversationID, userID)
}

func markHidden(ctx context.Context, db sqlx.ExecerContext, conversationID, userID string) (int64, error) {
	if userID == "" {
		return 0, invalidArgument("user id is required")
	}
	res, err := db.ExecContext(ctx, `UPDATE messages SET hidden_for = array_append(hidden_for, $2)
        WHERE room=$1 AND NOT ($2 = ANY(hidden_for))`, conversationID, userID)
	if err != nil {
		return 0, unavailable("hide messages", err)
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("hide messages", err)
	}
	return count, nil
}

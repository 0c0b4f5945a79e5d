package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/candidate-matcher/internal/apperrors"
	"github.com/jonathan/candidate-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Conversation Methods
// -----------------------------------------------------------------------------

const conversationColumns = `id, title, created_at, updated_at`

func scanConversation(row pgx.Row) (*types.Conversation, error) {
	var c types.Conversation
	if err := row.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateConversation inserts a new conversation
func (db *DB) CreateConversation(ctx context.Context, title string) (*types.Conversation, error) {
	c, err := scanConversation(db.pool.QueryRow(ctx,
		`INSERT INTO conversations (title) VALUES ($1) RETURNING `+conversationColumns, title))
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return c, nil
}

// GetConversation retrieves a conversation by ID
func (db *DB) GetConversation(ctx context.Context, id uuid.UUID) (*types.Conversation, error) {
	c, err := scanConversation(db.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("db.GetConversation", "conversation", id)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return c, nil
}

// ListConversations returns conversations, most recently updated first
func (db *DB) ListConversations(ctx context.Context) ([]types.Conversation, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+conversationColumns+` FROM conversations ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []types.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateConversationTitle renames a conversation
func (db *DB) UpdateConversationTitle(ctx context.Context, id uuid.UUID, title string) (*types.Conversation, error) {
	c, err := scanConversation(db.pool.QueryRow(ctx,
		`UPDATE conversations SET title = $2, updated_at = NOW()
		 WHERE id = $1 RETURNING `+conversationColumns, id, title))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("db.UpdateConversationTitle", "conversation", id)
		}
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}
	return c, nil
}

// DeleteConversation removes a conversation; messages and results cascade.
func (db *DB) DeleteConversation(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("db.DeleteConversation", "conversation", id)
	}
	return nil
}

// AppendMessage inserts a message and bumps the conversation's updated_at in
// one transaction.
func (db *DB) AppendMessage(ctx context.Context, conversationID uuid.UUID, role types.Role, content string) (*types.Message, error) {
	const op = "db.AppendMessage"
	if !role.Valid() {
		return nil, apperrors.E(apperrors.CodeInvalidArgument, op, "invalid role: "+string(role), nil)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE conversations SET updated_at = NOW() WHERE id = $1`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound(op, "conversation", conversationID)
	}

	var m types.Message
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)
		 RETURNING id, conversation_id, role, content, created_at`,
		conversationID, string(role), content,
	).Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return &m, nil
}

// ListMessages returns a conversation's messages in creation order
func (db *DB) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]types.Message, error) {
	if _, err := db.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = $1 ORDER BY seq`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// -----------------------------------------------------------------------------
// Result Methods
// -----------------------------------------------------------------------------

// SaveResult stores the pipeline result behind an assistant message
func (db *DB) SaveResult(ctx context.Context, r types.StoredResult) error {
	payload, err := json.Marshal(r.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO message_results (message_id, conversation_id, result)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (message_id) DO UPDATE SET result = $3, created_at = NOW()`,
		r.MessageID, r.ConversationID, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// LatestResult returns the newest stored result of a conversation, or nil
func (db *DB) LatestResult(ctx context.Context, conversationID uuid.UUID) (*types.StoredResult, error) {
	return db.queryResult(ctx,
		`SELECT r.message_id, r.conversation_id, r.result, r.created_at
		 FROM message_results r JOIN messages m ON m.id = r.message_id
		 WHERE r.conversation_id = $1
		 ORDER BY m.seq DESC LIMIT 1`, conversationID)
}

// ResultForMessage returns the result stored for a message, or nil
func (db *DB) ResultForMessage(ctx context.Context, messageID uuid.UUID) (*types.StoredResult, error) {
	return db.queryResult(ctx,
		`SELECT message_id, conversation_id, result, created_at
		 FROM message_results WHERE message_id = $1`, messageID)
}

func (db *DB) queryResult(ctx context.Context, sql string, arg any) (*types.StoredResult, error) {
	var r types.StoredResult
	var payload []byte
	err := db.pool.QueryRow(ctx, sql, arg).Scan(&r.MessageID, &r.ConversationID, &payload, &r.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if err := json.Unmarshal(payload, &r.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return &r, nil
}

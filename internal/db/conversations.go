package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const (
	maxTitleRunes = 50
	defaultTitle  = "New Chat"
)

// Exchange is one user turn and the assistant's answer to it
type Exchange struct {
	WalletAddress  string
	ConversationID string // empty starts a new conversation
	UserContent    string
	ReplyContent   string
}

// SaveExchange stores a user/assistant pair and returns the conversation id.
// An existing id owned by another wallet yields ErrNotFound.
func (db *DB) SaveExchange(ctx context.Context, ex Exchange) (string, error) {
	id := ex.ConversationID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return "", ErrNotFound
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, wallet_address, title)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET updated_at = NOW()
		WHERE conversations.wallet_address = EXCLUDED.wallet_address
	`, id, ex.WalletAddress, Title(ex.UserContent))
	if err != nil {
		return "", fmt.Errorf("failed to upsert conversation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return "", ErrNotFound
	}

	insert := `INSERT INTO messages (conversation_id, role, content) VALUES ($1, $2, $3)`
	if ex.UserContent != "" {
		if _, err := tx.ExecContext(ctx, insert, id, "user", ex.UserContent); err != nil {
			return "", fmt.Errorf("failed to save user message: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx, insert, id, "assistant", ex.ReplyContent); err != nil {
		return "", fmt.Errorf("failed to save assistant message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit exchange: %w", err)
	}
	return id, nil
}

// Title derives a conversation title from the opening user message
func Title(content string) string {
	r := []rune(content)
	if len(r) == 0 {
		return defaultTitle
	}
	if len(r) > maxTitleRunes {
		r = r[:maxTitleRunes]
	}
	return string(r)
}

// ListConversations returns a wallet's conversations, most recently updated first
func (db *DB) ListConversations(ctx context.Context, wallet string) ([]Conversation, error) {
	query := `
		SELECT id, wallet_address, title, created_at, updated_at
		FROM conversations
		WHERE wallet_address = $1
		ORDER BY updated_at DESC
	`

	rows, err := db.QueryContext(ctx, query, wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.WalletAddress, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// GetConversation loads a conversation owned by wallet
func (db *DB) GetConversation(ctx context.Context, id, wallet string) (*Conversation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	query := `
		SELECT id, wallet_address, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var c Conversation
	err := db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.WalletAddress, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if c.WalletAddress != wallet {
		return nil, ErrNotFound
	}

	return &c, nil
}

// GetMessages returns a conversation's messages in chronological order
func (db *DB) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	query := `
		SELECT id, conversation_id, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return messages, nil
}

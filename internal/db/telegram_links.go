package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LinkTelegram creates or replaces the wallet linked to a Telegram user
func (db *DB) LinkTelegram(ctx context.Context, link TelegramLink) error {
	query := `
		INSERT INTO wallet_telegram_links (telegram_user_id, wallet_address, signature)
		VALUES ($1, $2, $3)
		ON CONFLICT (telegram_user_id) DO UPDATE
		SET wallet_address = EXCLUDED.wallet_address,
		    signature = EXCLUDED.signature,
		    linked_at = NOW()
	`

	if _, err := db.ExecContext(ctx, query, link.TelegramUserID, link.WalletAddress, link.Signature); err != nil {
		return fmt.Errorf("failed to link telegram user: %w", err)
	}
	return nil
}

// GetTelegramLink returns the wallet linked to a Telegram user
func (db *DB) GetTelegramLink(ctx context.Context, telegramUserID string) (*TelegramLink, error) {
	query := `
		SELECT telegram_user_id, wallet_address, signature, linked_at
		FROM wallet_telegram_links
		WHERE telegram_user_id = $1
	`

	var l TelegramLink
	err := db.QueryRowContext(ctx, query, telegramUserID).
		Scan(&l.TelegramUserID, &l.WalletAddress, &l.Signature, &l.LinkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get telegram link: %w", err)
	}
	return &l, nil
}

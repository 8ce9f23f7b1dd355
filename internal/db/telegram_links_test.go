package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestLinkTelegram(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`INSERT INTO wallet_telegram_links`).
		WithArgs("4242", testWallet, "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.LinkTelegram(context.Background(), TelegramLink{TelegramUserID: "4242", WalletAddress: testWallet})
	if err != nil {
		t.Fatalf("LinkTelegram: %v", err)
	}

	mock.ExpectExec(`INSERT INTO wallet_telegram_links`).WillReturnError(sql.ErrConnDone)
	if err := db.LinkTelegram(context.Background(), TelegramLink{TelegramUserID: "1"}); !errors.Is(err, sql.ErrConnDone) {
		t.Errorf("expected wrapped driver error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTelegramLink(t *testing.T) {
	db, mock := newMockDB(t)
	columns := []string{"telegram_user_id", "wallet_address", "signature", "linked_at"}

	mock.ExpectQuery(`FROM wallet_telegram_links`).WithArgs("4242").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("4242", testWallet, "", time.Now()))
	mock.ExpectQuery(`FROM wallet_telegram_links`).WithArgs("7").
		WillReturnRows(sqlmock.NewRows(columns))

	link, err := db.GetTelegramLink(context.Background(), "4242")
	if err != nil {
		t.Fatalf("GetTelegramLink: %v", err)
	}
	if link.WalletAddress != testWallet {
		t.Errorf("wallet = %q", link.WalletAddress)
	}

	if _, err := db.GetTelegramLink(context.Background(), "7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

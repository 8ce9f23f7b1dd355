// Package telegram adapts the Bot API to the chat engine.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nexahealth/triagebot/internal/chat"
)

// API is the subset of *tgbotapi.BotAPI the adapter uses
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Messenger implements chat.Messenger over the Bot API
type Messenger struct {
	api API
}

// NewMessenger creates a Telegram messenger
func NewMessenger(api API) *Messenger {
	return &Messenger{api: api}
}

// SendMessage sends text with optional inline buttons or a reply keyboard
func (m *Messenger) SendMessage(ctx context.Context, chatID int64, msg chat.OutgoingMessage) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	sent, err := m.api.Send(buildMessage(chatID, msg))
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// DeleteMessage removes a message from the chat
func (m *Messenger) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message %d: %w", messageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally showing text
func (m *Messenger) AnswerCallback(ctx context.Context, callbackID, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := m.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func buildMessage(chatID int64, msg chat.OutgoingMessage) tgbotapi.MessageConfig {
	cfg := tgbotapi.NewMessage(chatID, msg.Text)

	switch {
	case len(msg.Inline) > 0:
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(msg.Inline))
		for _, row := range msg.Inline {
			buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
			for _, b := range row {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)

	case len(msg.ReplyKeyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(msg.ReplyKeyboard))
		for _, row := range msg.ReplyKeyboard {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, label := range row {
				buttons = append(buttons, tgbotapi.NewKeyboardButton(label))
			}
			rows = append(rows, tgbotapi.NewKeyboardButtonRow(buttons...))
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.ResizeKeyboard = true
		cfg.ReplyMarkup = kb
	}

	return cfg
}

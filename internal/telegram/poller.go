package telegram

import (
	"context"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/nexahealth/triagebot/internal/chat"
	"github.com/nexahealth/triagebot/internal/privacy"
)

// Handler consumes decoded updates
type Handler interface {
	HandleMessage(ctx context.Context, msg chat.IncomingMessage) error
	HandleCallback(ctx context.Context, cb chat.IncomingCallback) error
}

// Run dispatches updates one at a time until ctx is done or the channel closes
func Run(ctx context.Context, updates <-chan tgbotapi.Update, h Handler) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			Dispatch(ctx, update, h)
		}
	}
}

// Dispatch translates a single update and hands it to h. Handler errors
// are logged; one bad update never stops the loop.
func Dispatch(ctx context.Context, update tgbotapi.Update, h Handler) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		in := chat.IncomingCallback{ID: cb.ID, Data: cb.Data}
		if cb.Message != nil {
			in.MessageID = cb.Message.MessageID
			if cb.Message.Chat != nil {
				in.ChatID = cb.Message.Chat.ID
			}
		}
		if in.ChatID == 0 && cb.From != nil {
			in.ChatID = cb.From.ID
		}
		if err := h.HandleCallback(ctx, in); err != nil {
			log.Printf("Callback handling failed: chat=%d, err=%v", in.ChatID, err)
		}

	case update.Message != nil && update.Message.Chat != nil:
		m := update.Message
		in := chat.IncomingMessage{
			ChatID:    m.Chat.ID,
			MessageID: m.MessageID,
			Text:      m.Text,
		}
		if m.From != nil {
			in.UserID = m.From.ID
			in.FirstName = m.From.FirstName
		}
		if err := h.HandleMessage(ctx, in); err != nil {
			log.Printf("Message handling failed: chat=%d, text=%q, err=%v",
				in.ChatID, privacy.SanitizeForLogging(in.Text), err)
		}
	}
}

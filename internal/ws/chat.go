package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nexahealth/triagebot/internal/api/middleware"
	"github.com/nexahealth/triagebot/internal/db"
	"github.com/nexahealth/triagebot/internal/fallback"
	"github.com/nexahealth/triagebot/internal/privacy"
	"github.com/nexahealth/triagebot/internal/wallet"
	"github.com/nexahealth/triagebot/pkg/llm"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS policy is enforced on the HTTP routes
	},
}

const historySize = 10

// Streamer streams an AI reply to a conversation
type Streamer interface {
	StreamChatWithContext(ctx context.Context, messages []llm.ChatMessage, onChunk func(string) error) (string, error)
}

// ExchangeStore persists completed exchanges
type ExchangeStore interface {
	SaveExchange(ctx context.Context, ex db.Exchange) (string, error)
}

// ChatHandler handles WebSocket chat connections
type ChatHandler struct {
	assistant         Streamer
	store             ExchangeStore
	messagesPerMinute int
}

// NewChatHandler creates a new chat handler. store may be nil, in which
// case nothing is persisted.
func NewChatHandler(assistant Streamer, store ExchangeStore, messagesPerMinute int) *ChatHandler {
	if messagesPerMinute <= 0 {
		messagesPerMinute = 20
	}
	return &ChatHandler{
		assistant:         assistant,
		store:             store,
		messagesPerMinute: messagesPerMinute,
	}
}

// IncomingMessage represents a message from the client
type IncomingMessage struct {
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// OutgoingMessage represents a message to the client
type OutgoingMessage struct {
	Type           string `json:"type"` // "message", "error", "done"
	Content        string `json:"content,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// session is the per-connection state
type session struct {
	conn           *websocket.Conn
	wallet         string
	conversationID string
	history        []llm.ChatMessage
}

// HandleChat handles WebSocket chat connections. The wallet is taken from
// "Authorization: Wallet <addr>" or the wallet_address query parameter.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	addr := wallet.FromAuthorization(c.GetHeader("Authorization"))
	if addr == "" {
		addr = wallet.First(c.Query("wallet_address"))
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	s := &session{conn: conn, wallet: addr, conversationID: c.Query("conversation_id")}
	limiter := middleware.NewWebSocketLimiter(h.messagesPerMinute)

	log.Printf("WebSocket connected: wallet=%s", privacy.MaskWallet(addr))

	for {
		var msg IncomingMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		if !limiter.Allow() {
			h.sendError(conn, "Rate limit exceeded. Please slow down.")
			continue
		}
		if strings.TrimSpace(msg.Content) == "" {
			h.sendError(conn, fallback.NoMessages)
			continue
		}
		if msg.ConversationID != "" {
			s.conversationID = msg.ConversationID
		}

		if err := h.processMessage(c.Request.Context(), s, msg.Content); err != nil {
			log.Printf("Error processing message: %v", err)
			break
		}
	}
}

// processMessage streams one reply. A returned error means the connection is unusable.
func (h *ChatHandler) processMessage(ctx context.Context, s *session, content string) error {
	s.remember(llm.RoleUser, content)

	reply, err := h.assistant.StreamChatWithContext(ctx, s.history, func(chunk string) error {
		return h.sendMessage(s.conn, chunk)
	})
	if err != nil {
		return err
	}
	s.remember(llm.RoleAssistant, reply)

	if s.wallet != "" && h.store != nil {
		id, err := h.store.SaveExchange(ctx, db.Exchange{
			WalletAddress:  s.wallet,
			ConversationID: s.conversationID,
			UserContent:    content,
			ReplyContent:   reply,
		})
		switch {
		case errors.Is(err, db.ErrNotFound):
			return h.sendError(s.conn, "Conversation not found")
		case err != nil:
			log.Printf("Failed to save exchange: %v", err)
		default:
			s.conversationID = id
		}
	}

	return h.sendDone(s.conn, s.conversationID)
}

func (s *session) remember(role, content string) {
	s.history = append(s.history, llm.ChatMessage{Role: role, Content: content})
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

// sendMessage sends a message chunk to the client
func (h *ChatHandler) sendMessage(conn *websocket.Conn, content string) error {
	return conn.WriteJSON(OutgoingMessage{
		Type:    "message",
		Content: content,
	})
}

// sendError sends an error message to the client
func (h *ChatHandler) sendError(conn *websocket.Conn, message string) error {
	return conn.WriteJSON(OutgoingMessage{
		Type:    "error",
		Content: message,
	})
}

// sendDone signals that the response is complete
func (h *ChatHandler) sendDone(conn *websocket.Conn, conversationID string) error {
	return conn.WriteJSON(OutgoingMessage{
		Type:           "done",
		ConversationID: conversationID,
	})
}

package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/db"
	"github.com/nexahealth/triagebot/internal/privacy"
	"github.com/nexahealth/triagebot/internal/wallet"
	"github.com/nexahealth/triagebot/pkg/llm"
)

// ChatAssistant answers web chat conversations
type ChatAssistant interface {
	ChatWithContext(ctx context.Context, messages []llm.ChatMessage) string
	Configured() bool
}

// ChatStore persists web chat history by wallet
type ChatStore interface {
	SaveExchange(ctx context.Context, ex db.Exchange) (string, error)
	ListConversations(ctx context.Context, wallet string) ([]db.Conversation, error)
	GetConversation(ctx context.Context, id, wallet string) (*db.Conversation, error)
	GetMessages(ctx context.Context, conversationID string) ([]db.Message, error)
}

// ChatHandler serves the web chat endpoints
type ChatHandler struct {
	assistant ChatAssistant
	store     ChatStore
}

// NewChatHandler creates a new chat handler
func NewChatHandler(assistant ChatAssistant, store ChatStore) *ChatHandler {
	return &ChatHandler{assistant: assistant, store: store}
}

// RegisterRoutes mounts the chat endpoints
func (h *ChatHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/chat", h.Chat)
	r.GET("/chat/history", h.History)
	r.GET("/chat/conversation/:id", h.Conversation)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages       []chatMessage `json:"messages"`
	ConversationID string        `json:"conversation_id"`
	WalletAddress  string        `json:"wallet_address"`
	WalletAddrAlt  string        `json:"walletAddress"`
}

type chatDelta struct {
	Content string `json:"content"`
}

type chatChoice struct {
	Delta chatDelta `json:"delta"`
}

type chatResponse struct {
	Choices        []chatChoice `json:"choices"`
	ConversationID *string      `json:"conversation_id"`
}

// Chat answers the last user message and stores the exchange for a wallet.
// A conversation_id must belong to the wallet before the assistant is asked.
// POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if len(req.Messages) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No messages provided"})
		return
	}

	addr := requestWallet(c, req.WalletAddress, req.WalletAddrAlt)
	if addr != "" && req.ConversationID != "" {
		_, err := h.store.GetConversation(c.Request.Context(), req.ConversationID, addr)
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
			return
		}
		if err != nil {
			log.Printf("Failed to load conversation for %s: %v", privacy.MaskWallet(addr), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
			return
		}
	}

	history := toLLMMessages(req.Messages)
	reply := h.assistant.ChatWithContext(c.Request.Context(), history)

	resp := chatResponse{Choices: []chatChoice{{Delta: chatDelta{Content: reply}}}}
	if req.ConversationID != "" {
		resp.ConversationID = &req.ConversationID
	}

	if addr == "" {
		c.JSON(http.StatusOK, resp)
		return
	}

	id, err := h.store.SaveExchange(c.Request.Context(), db.Exchange{
		WalletAddress:  addr,
		ConversationID: req.ConversationID,
		UserContent:    lastUserContent(history),
		ReplyContent:   reply,
	})
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to save exchange for %s: %v", privacy.MaskWallet(addr), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save conversation"})
		return
	}

	resp.ConversationID = &id
	c.JSON(http.StatusOK, resp)
}

// History lists a wallet's conversations, newest first
// GET /chat/history
func (h *ChatHandler) History(c *gin.Context) {
	addr := requestWallet(c)
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid wallet address required"})
		return
	}

	conversations, err := h.store.ListConversations(c.Request.Context(), addr)
	if err != nil {
		log.Printf("Failed to list conversations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Conversation returns the messages of one conversation owned by the wallet
// GET /chat/conversation/:id
func (h *ChatHandler) Conversation(c *gin.Context) {
	addr := requestWallet(c)
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Valid wallet address required"})
		return
	}

	conv, err := h.store.GetConversation(c.Request.Context(), c.Param("id"), addr)
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}
	if err != nil {
		log.Printf("Failed to get conversation: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve conversation"})
		return
	}

	messages, err := h.store.GetMessages(c.Request.Context(), conv.ID)
	if err != nil {
		log.Printf("Failed to get messages: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// requestWallet resolves the caller's wallet from the Authorization header,
// then the given body fields, then the wallet_address query parameter
func requestWallet(c *gin.Context, bodyFields ...string) string {
	if addr := wallet.FromAuthorization(c.GetHeader("Authorization")); addr != "" {
		return addr
	}
	candidates := append(bodyFields, c.Query("wallet_address"))
	return wallet.First(candidates...)
}

// toLLMMessages keeps user and assistant turns; anything else a client
// sends is dropped so it cannot pose as a system prompt
func toLLMMessages(in []chatMessage) []llm.ChatMessage {
	out := make([]llm.ChatMessage, 0, len(in))
	for _, m := range in {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		out = append(out, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return out
}

func lastUserContent(messages []llm.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nexahealth/triagebot/internal/api/middleware"
	"github.com/nexahealth/triagebot/internal/db"
	"github.com/nexahealth/triagebot/internal/privacy"
	"github.com/nexahealth/triagebot/internal/wallet"
)

// LinkStore persists Telegram to wallet links
type LinkStore interface {
	LinkTelegram(ctx context.Context, link db.TelegramLink) error
	GetTelegramLink(ctx context.Context, telegramUserID string) (*db.TelegramLink, error)
}

// WalletLinkHandler links Telegram accounts to wallets
type WalletLinkHandler struct {
	store LinkStore
}

// NewWalletLinkHandler creates a new wallet link handler
func NewWalletLinkHandler(store LinkStore) *WalletLinkHandler {
	return &WalletLinkHandler{store: store}
}

// RegisterRoutes mounts the wallet link endpoints. Callers must install
// middleware.RelayAuth ahead of these routes.
func (h *WalletLinkHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/wallet/link-telegram", h.Link)
	r.GET("/wallet/link-telegram/:telegram_user_id", middleware.RequireRelay(), h.Get)
}

// telegramID accepts a Telegram user id sent as a JSON number or string
type telegramID string

func (t *telegramID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = telegramID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*t = telegramID(n.String())
	return nil
}

type linkRequest struct {
	TelegramUserID telegramID `json:"telegram_user_id"`
	WalletAddress  string     `json:"wallet_address"`
	Signature      string     `json:"signature"`
}

// Link stores the association. The caller proves ownership with a wallet
// signature or is the bot presenting a relay token.
// POST /wallet/link-telegram
func (h *WalletLinkHandler) Link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	id := string(req.TelegramUserID)
	if id == "" || req.WalletAddress == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid telegram user id"})
		return
	}
	if !wallet.IsValid(req.WalletAddress) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid wallet address"})
		return
	}
	if strings.TrimSpace(req.Signature) == "" && !middleware.IsRelay(c) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Signature or relay token required"})
		return
	}

	addr := wallet.Normalize(req.WalletAddress)
	err := h.store.LinkTelegram(c.Request.Context(), db.TelegramLink{
		TelegramUserID: id,
		WalletAddress:  addr,
		Signature:      req.Signature,
	})
	if err != nil {
		log.Printf("Failed to link telegram user %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link wallet"})
		return
	}

	log.Printf("Telegram user %s linked to %s", id, privacy.MaskWallet(addr))
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Wallet linked successfully"})
}

// Get returns the wallet linked to a Telegram user
// GET /wallet/link-telegram/:telegram_user_id
func (h *WalletLinkHandler) Get(c *gin.Context) {
	link, err := h.store.GetTelegramLink(c.Request.Context(), c.Param("telegram_user_id"))
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No wallet linked"})
		return
	}
	if err != nil {
		log.Printf("Failed to get telegram link: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve link"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telegram_user_id": link.TelegramUserID,
		"wallet_address":   link.WalletAddress,
		"linked_at":        link.LinkedAt,
	})
}

package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nexahealth/triagebot/internal/privacy"
)

// ErrLinkRejected is returned when the API answers with a non-2xx status
var ErrLinkRejected = errors.New("wallet link rejected")

// Client relays wallet links from the bot to the HTTP API
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a relay client for the API at baseURL
func NewClient(baseURL, secret string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		now: time.Now,
	}
}

type linkRequest struct {
	TelegramUserID string `json:"telegram_user_id"`
	WalletAddress  string `json:"wallet_address"`
	Signature      string `json:"signature"`
}

// Link associates a Telegram user id with a wallet address
func (c *Client) Link(ctx context.Context, telegramUserID int64, address string) error {
	body, err := json.Marshal(linkRequest{
		TelegramUserID: strconv.FormatInt(telegramUserID, 10),
		WalletAddress:  address,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal link request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/wallet/link-telegram", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.secret != "" {
		token, err := IssueToken(c.secret, c.now())
		if err != nil {
			return fmt.Errorf("failed to issue relay token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send link request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrLinkRejected, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	log.Printf("Linked telegram user %d to wallet %s", telegramUserID, privacy.MaskWallet(address))
	return nil
}

package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pressbot/internal/domain"
	"pressbot/internal/infra/metrics"
)

// SessionResetter clears a chat's conversation so "/new" starts fresh.
type SessionResetter interface {
	Reset(chatID string)
}

// TelegramOption configures the Telegram channel.
type TelegramOption func(*TelegramChannel)

// WithTelegramMentionOnly enables mention-only filtering in groups.
func WithTelegramMentionOnly(v bool) TelegramOption {
	return func(t *TelegramChannel) { t.mentionOnly = v }
}

// WithSessionResetter wires the "/new" command to the session store.
func WithSessionResetter(r SessionResetter) TelegramOption {
	return func(t *TelegramChannel) { t.resetter = r }
}

// TelegramChannel implements domain.Channel for Telegram Bot API via long-polling.
type TelegramChannel struct {
	token       string
	handler     domain.MessageHandler
	logger      *slog.Logger
	client      *http.Client
	baseURL     string
	offset      int64
	done        chan struct{}
	botUsername string
	mentionOnly bool
	resetter    SessionResetter
}

// NewTelegramChannel creates a Telegram bot channel.
func NewTelegramChannel(token string, logger *slog.Logger, opts ...TelegramOption) *TelegramChannel {
	t := &TelegramChannel{
		token:   token,
		logger:  logger,
		baseURL: "https://api.telegram.org",
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Start begins long-polling for updates. Non-blocking (starts in goroutine).
func (t *TelegramChannel) Start(ctx context.Context, handler domain.MessageHandler) error {
	t.handler = handler

	// Fetch bot username for mention detection.
	if me, err := t.getMe(ctx); err == nil {
		t.botUsername = me
		t.logger.Info("telegram bot identified", "username", me)
	} else {
		t.logger.Warn("telegram getMe failed, mention detection disabled", "error", err)
	}

	go t.pollLoop(ctx)
	t.logger.Info("telegram channel started")
	return nil
}

// Stop signals the polling loop to stop.
func (t *TelegramChannel) Stop(_ context.Context) error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	return nil
}

// Send sends a message to a Telegram chat. Image URLs are delivered as
// photos after the text.
func (t *TelegramChannel) Send(ctx context.Context, msg domain.OutboundMessage) error {
	content := msg.Content
	if msg.IsError {
		content = "Error: " + content
	}

	if err := t.sendMessage(ctx, msg.ChatID, content); err != nil {
		return err
	}
	for _, u := range msg.ImageURLs {
		if err := t.sendPhoto(ctx, msg.ChatID, u); err != nil {
			t.logger.Warn("telegram sendPhoto failed", "chat_id", msg.ChatID, "error", err)
		}
	}
	return nil
}

// Name implements domain.Channel.
func (t *TelegramChannel) Name() string { return "telegram" }

func (t *TelegramChannel) pollLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.done:
			return
		default:
			updates, err := t.getUpdates(ctx)
			if err != nil {
				t.logger.Warn("telegram getUpdates failed", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, u := range updates {
				if u.UpdateID >= t.offset {
					t.offset = u.UpdateID + 1
				}
				if u.Message == nil {
					continue
				}

				content := u.Message.Text
				if content == "" {
					continue
				}

				chatID := strconv.FormatInt(u.Message.Chat.ID, 10)

				// Handle commands first
				if strings.HasPrefix(content, "/") {
					if t.handleCommand(ctx, chatID, content) {
						continue // Command handled, don't send to agent
					}
				}

				// Detect mention.
				isMention := t.hasBotMention(u.Message)
				isGroup := u.Message.Chat.Type != "" && u.Message.Chat.Type != "private"

				// Mention gating: skip non-mentioned group messages when mentionOnly.
				if t.mentionOnly && isGroup && !isMention {
					continue
				}

				msg := domain.InboundMessage{
					ChatID:      chatID,
					Content:     content,
					ChannelName: "telegram",
					IsMention:   isMention,
				}

				// Enrich sender.
				if u.Message.From != nil {
					msg.SenderID = strconv.FormatInt(u.Message.From.ID, 10)
					name := u.Message.From.FirstName
					if u.Message.From.LastName != "" {
						name += " " + u.Message.From.LastName
					}
					msg.SenderName = name
				}

				metrics.MessagesTotal.WithLabelValues("telegram").Inc()

				if err := t.handler(ctx, msg); err != nil {
					t.logger.Error("telegram handler error", "error", err, "chat_id", chatID)
				}
			}
		}
	}
}

// hasBotMention checks if any entity in the message mentions the bot.
func (t *TelegramChannel) hasBotMention(msg *telegramMessage) bool {
	if t.botUsername == "" {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == "mention" {
			end := e.Offset + e.Length
			if end <= int64(len(msg.Text)) {
				mention := msg.Text[e.Offset:end]
				if strings.EqualFold(mention, "@"+t.botUsername) {
					return true
				}
			}
		}
	}
	return false
}

// handleCommand processes bot commands. Returns true if command was handled.
func (t *TelegramChannel) handleCommand(ctx context.Context, chatID, content string) bool {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return false
	}

	cmd := fields[0]
	// Commands in groups arrive as "/help@botname".
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	switch cmd {
	case "/help", "/start":
		_ = t.sendMessage(ctx, chatID, helpText)
		return true
	case "/new":
		if t.resetter != nil {
			t.resetter.Reset(chatID)
		}
		_ = t.sendMessage(ctx, chatID, "Started a fresh conversation. What shall we write?")
		return true
	default:
		return false // Not a bot command, send to agent
	}
}

// --- Telegram Bot API types ---

type telegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type telegramEntity struct {
	Type   string `json:"type"`
	Offset int64  `json:"offset"`
	Length int64  `json:"length"`
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID int64            `json:"message_id"`
	From      *telegramUser    `json:"from,omitempty"`
	Chat      telegramChat     `json:"chat"`
	Text      string           `json:"text"`
	Entities  []telegramEntity `json:"entities,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type telegramUpdateResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendPhotoRequest struct {
	ChatID string `json:"chat_id"`
	Photo  string `json:"photo"`
}

type telegramGetMeResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		Username string `json:"username"`
	} `json:"result"`
}

func (t *TelegramChannel) getMe(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/bot%s/getMe", t.baseURL, t.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result telegramGetMeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}

	if !result.OK || result.Result.Username == "" {
		return "", fmt.Errorf("getMe returned ok=%v username=%q", result.OK, result.Result.Username)
	}

	return result.Result.Username, nil
}

func (t *TelegramChannel) getUpdates(ctx context.Context) ([]telegramUpdate, error) {
	url := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=30", t.baseURL, t.token, t.offset)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram API error %d: %s", resp.StatusCode, string(body))
	}

	var result telegramUpdateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("telegram API returned ok=false")
	}

	return result.Result, nil
}

func (t *TelegramChannel) sendMessage(ctx context.Context, chatID, text string) error {
	return t.post(ctx, "sendMessage", telegramSendRequest{ChatID: chatID, Text: text})
}

func (t *TelegramChannel) sendPhoto(ctx context.Context, chatID, photoURL string) error {
	return t.post(ctx, "sendPhoto", telegramSendPhotoRequest{ChatID: chatID, Photo: photoURL})
}

func (t *TelegramChannel) post(ctx context.Context, method string, payload any) error {
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram %s error %d: %s", method, resp.StatusCode, string(body))
	}

	return nil
}

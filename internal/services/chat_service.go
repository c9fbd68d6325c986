package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/leadflow/internal/models"
	apperrors "github.com/charlesng35/leadflow/pkg/errors"
	"github.com/charlesng35/leadflow/pkg/logger"
	"github.com/charlesng35/leadflow/pkg/metrics"
)

// DefaultWebhookTimeout caps a single call to the chat workflow webhook.
const DefaultWebhookTimeout = 30 * time.Second

const (
	ReplyOriginKeyword  = "keyword"
	ReplyOriginWebhook  = "webhook"
	ReplyOriginFallback = "fallback"
)

type cannedReply struct {
	keywords []string
	reply    string
}

var cannedReplies = []cannedReply{
	{[]string{"price", "pricing", "cost", "how much"}, "Our automation packages start with a free discovery call. Pricing depends on the workflows you need, so book a call and we will put together a quote."},
	{[]string{"book", "call", "meeting", "schedule", "appointment"}, "You can book a free 30 minute strategy call from the booking section on this page. Pick any open slot that suits you."},
	{[]string{"instagram", "social media", "dm"}, "We build Instagram and social media automations: auto replies to DMs and comments, lead capture and follow up sequences."},
	{[]string{"whatsapp"}, "Yes, we automate WhatsApp Business too: instant replies, booking reminders and lead qualification flows."},
	{[]string{"email", "newsletter"}, "We set up email automations such as welcome sequences, follow ups and re-engagement campaigns connected to your CRM."},
	{[]string{"crm", "pipeline", "leads"}, "Every lead we capture for you lands in a CRM pipeline so you can track it from first contact to closed deal."},
	{[]string{"chatbot", "bot", "ai"}, "We design chatbots for your website and messaging channels that answer common questions and hand hot leads to your team."},
	{[]string{"how long", "timeline", "time frame", "when"}, "Most automation projects go live within two to four weeks, depending on the number of integrations."},
	{[]string{"integrat", "zapier", "make", "n8n"}, "We connect the tools you already use through workflow platforms and custom integrations."},
	{[]string{"support", "help", "problem"}, "Our team offers ongoing support and monitoring for every automation we build. Leave your email and we will get back to you."},
	{[]string{"example", "portfolio", "case", "result"}, "Take a look at the before and after projects on this page to see results from businesses like yours."},
	{[]string{"hello", "hi", "hey", "good morning", "good afternoon"}, "Hi there! I can answer questions about our automation services, pricing or booking a call. What would you like to know?"},
}

const fallbackReply = "Thanks for your message! A member of our team will get back to you shortly. You can also book a free call from the booking section."

// KeywordReply returns the canned reply for the first keyword group found in
// message, and whether any group matched.
func KeywordReply(message string) (string, bool) {
	text := strings.ToLower(message)
	for _, canned := range cannedReplies {
		for _, kw := range canned.keywords {
			if strings.Contains(text, kw) {
				return canned.reply, true
			}
		}
	}
	return fallbackReply, false
}

// ChatInput is a visitor message from the website widget.
type ChatInput struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Message   string `json:"message" validate:"required,max=4000"`
}

// ChatReply is returned to the widget.
type ChatReply struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Origin    string `json:"origin"`
}

// ChatSession summarises one conversation for the admin chat log.
type ChatSession struct {
	SessionID     string    `json:"session_id"`
	MessageCount  int64     `json:"message_count"`
	LastMessageAt time.Time `json:"last_message_at"`
}

// ChatService answers website chat messages and keeps the transcript.
type ChatService struct {
	db         *gorm.DB
	webhookURL string
	client     *http.Client
	log        *zap.Logger
}

// ChatOption customises the ChatService.
type ChatOption func(*ChatService)

// WithChatWebhook forwards messages to an external workflow. timeout <= 0
// uses DefaultWebhookTimeout.
func WithChatWebhook(url string, timeout time.Duration) ChatOption {
	return func(s *ChatService) {
		s.webhookURL = strings.TrimSpace(url)
		if timeout <= 0 || timeout > DefaultWebhookTimeout {
			timeout = DefaultWebhookTimeout
		}
		s.client.Timeout = timeout
	}
}

// WithChatHTTPClient replaces the HTTP client used for the webhook.
func WithChatHTTPClient(client *http.Client) ChatOption {
	return func(s *ChatService) {
		if client != nil {
			s.client = client
		}
	}
}

// NewChatService constructs a ChatService.
func NewChatService(db *gorm.DB, opts ...ChatOption) (*ChatService, error) {
	if db == nil {
		return nil, errors.New("chat service: db is required")
	}
	svc := &ChatService{
		db:     db,
		client: &http.Client{Timeout: DefaultWebhookTimeout},
		log:    logger.WithModule("chat"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Reply stores the visitor message, produces an answer and stores it too.
// The webhook is preferred when configured; any failure there falls back to
// the keyword table.
func (s *ChatService) Reply(ctx context.Context, input ChatInput) (*ChatReply, error) {
	ctx = ensureContext(ctx)
	input.SessionID = strings.TrimSpace(input.SessionID)
	input.Message = strings.TrimSpace(input.Message)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	if err := s.save(ctx, input.SessionID, models.ChatRoleUser, input.Message, ""); err != nil {
		return nil, err
	}

	reply, origin := s.answer(ctx, input)
	metrics.ChatReplies.WithLabelValues(origin).Inc()

	if err := s.save(ctx, input.SessionID, models.ChatRoleBot, reply, origin); err != nil {
		return nil, err
	}

	return &ChatReply{SessionID: input.SessionID, Reply: reply, Origin: origin}, nil
}

func (s *ChatService) answer(ctx context.Context, input ChatInput) (string, string) {
	if s.webhookURL != "" {
		reply, err := s.callWebhook(ctx, input)
		if err == nil && reply != "" {
			return reply, ReplyOriginWebhook
		}
		s.log.Warn("chat webhook failed, using keyword reply", zap.Error(err))
	}

	reply, matched := KeywordReply(input.Message)
	if matched {
		return reply, ReplyOriginKeyword
	}
	return reply, ReplyOriginFallback
}

type webhookResponse struct {
	Reply  string `json:"reply"`
	Output string `json:"output"`
}

func (s *ChatService) callWebhook(ctx context.Context, input ChatInput) (string, error) {
	body, err := json.Marshal(map[string]string{
		"session_id": input.SessionID,
		"message":    input.Message,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("chat webhook: status %d", resp.StatusCode)
	}

	var decoded webhookResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return "", fmt.Errorf("chat webhook: decode: %w", err)
	}
	return strings.TrimSpace(firstNonBlank(decoded.Reply, decoded.Output)), nil
}

func (s *ChatService) save(ctx context.Context, sessionID string, role models.ChatRole, content, origin string) error {
	msg := models.ChatMessage{SessionID: sessionID, Role: role, Content: content, Origin: origin}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return storeError(s.log, "save chat message", err)
	}
	return nil
}

// Sessions lists conversations, most recently active first.
func (s *ChatService) Sessions(ctx context.Context) ([]ChatSession, error) {
	type row struct {
		SessionID    string
		MessageCount int64
		LastMessage  string
	}
	var rows []row
	if err := s.db.WithContext(ensureContext(ctx)).
		Model(&models.ChatMessage{}).
		Select("session_id, COUNT(*) AS message_count, MAX(created_at) AS last_message").
		Group("session_id").
		Order("last_message DESC").
		Scan(&rows).Error; err != nil {
		return nil, storeError(s.log, "list chat sessions", err)
	}

	sessions := make([]ChatSession, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, ChatSession{
			SessionID:     r.SessionID,
			MessageCount:  r.MessageCount,
			LastMessageAt: parseAggregateTime(r.LastMessage),
		})
	}
	return sessions, nil
}

// Transcript returns the messages of one session in order.
func (s *ChatService) Transcript(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	sessionID = strings.TrimSpace(sessionID)
	messages := []models.ChatMessage{}
	if err := s.db.WithContext(ensureContext(ctx)).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error; err != nil {
		return nil, storeError(s.log, "chat transcript", err)
	}
	if len(messages) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return messages, nil
}

var aggregateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseAggregateTime reads MAX(created_at), which sqlite returns as text.
func parseAggregateTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range aggregateTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

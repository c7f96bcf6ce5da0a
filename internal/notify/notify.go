// Package notify provides notification functionality for the trading application.
package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"nifty-trader/internal/config"
	"nifty-trader/internal/models"
	"nifty-trader/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendSignal(ctx context.Context, signal *models.Signal) error
	SendTradeOpened(ctx context.Context, trade *models.PaperTrade) error
	SendTradeClosed(ctx context.Context, trade *models.PaperTrade) error
	SendDailySummary(ctx context.Context, stats *models.LedgerStats) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationSignal  NotificationType = "signal"
	NotificationTrade   NotificationType = "trade"
	NotificationError   NotificationType = "error"
	NotificationSummary NotificationType = "summary"
	NotificationInfo    NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelTradesOnly NotificationLevel = "trades_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
func NewMultiNotifier(cfg *config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
	}

	if mn.level == "" {
		mn.level = LevelAll
	}

	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	if cfg.Telegram.Enabled {
		mn.channels = append(mn.channels, NewTelegramNotifier(cfg.Telegram))
	}
	if cfg.Email.Enabled {
		mn.channels = append(mn.channels, NewEmailNotifier(cfg.Email))
	}

	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelTradesOnly:
		return notifType == NotificationTrade
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendSignal sends a signal notification.
func (mn *MultiNotifier) SendSignal(ctx context.Context, signal *models.Signal) error {
	title := fmt.Sprintf("Signal: %s %s", signal.Type, signal.Symbol)
	message := fmt.Sprintf(
		"Symbol: %s\nSignal: %s\nScore: %.1f (strength %.0f)\nPrice: %s\nStop: %s\nTarget: %s\nR:R: %.2f",
		signal.Symbol,
		signal.Type,
		signal.Score,
		signal.Strength,
		utils.FormatIndianCurrency(signal.Price),
		utils.FormatIndianCurrency(signal.StopLoss),
		utils.FormatIndianCurrency(signal.Target),
		signal.RiskReward,
	)
	if len(signal.Reasons) > 0 {
		message += "\n\nReasons:\n- " + strings.Join(signal.Reasons, "\n- ")
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationSignal,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":      signal.Symbol,
			"signal":      signal.Type,
			"score":       signal.Score,
			"strength":    signal.Strength,
			"price":       signal.Price,
			"stop_loss":   signal.StopLoss,
			"target":      signal.Target,
			"risk_reward": signal.RiskReward,
		},
	})
}

// SendTradeOpened sends a notification for a newly opened paper trade.
func (mn *MultiNotifier) SendTradeOpened(ctx context.Context, trade *models.PaperTrade) error {
	title := fmt.Sprintf("Trade Opened: %s %s", trade.Side, trade.Symbol)
	message := fmt.Sprintf(
		"ID: %s\nSymbol: %s\nSide: %s\nQuantity: %d\nEntry: %s\nStop: %s\nTarget: %s",
		trade.ID,
		trade.Symbol,
		trade.Side,
		trade.Quantity,
		utils.FormatIndianCurrency(trade.EntryPrice),
		utils.FormatIndianCurrency(trade.StopLoss),
		utils.FormatIndianCurrency(trade.Target),
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"trade_id":    trade.ID,
			"symbol":      trade.Symbol,
			"side":        trade.Side,
			"quantity":    trade.Quantity,
			"entry_price": trade.EntryPrice,
			"stop_loss":   trade.StopLoss,
			"target":      trade.Target,
		},
	})
}

// SendTradeClosed sends a notification for a closed paper trade.
func (mn *MultiNotifier) SendTradeClosed(ctx context.Context, trade *models.PaperTrade) error {
	var pnl, exitPrice float64
	if trade.PnL != nil {
		pnl = *trade.PnL
	}
	if trade.ExitPrice != nil {
		exitPrice = *trade.ExitPrice
	}

	pnlSign := "+"
	if pnl < 0 {
		pnlSign = ""
	}

	title := fmt.Sprintf("Trade Closed (%s): %s %s", trade.Status, trade.Side, trade.Symbol)
	message := fmt.Sprintf(
		"ID: %s\nSymbol: %s\nSide: %s\nQuantity: %d\nEntry: %s\nExit: %s\nP&L: %s%s",
		trade.ID,
		trade.Symbol,
		trade.Side,
		trade.Quantity,
		utils.FormatIndianCurrency(trade.EntryPrice),
		utils.FormatIndianCurrency(exitPrice),
		pnlSign,
		utils.FormatIndianCurrency(pnl),
	)

	return mn.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"trade_id":    trade.ID,
			"symbol":      trade.Symbol,
			"side":        trade.Side,
			"status":      trade.Status,
			"quantity":    trade.Quantity,
			"entry_price": trade.EntryPrice,
			"exit_price":  exitPrice,
			"pnl":         pnl,
		},
	})
}

// SendDailySummary sends a ledger summary notification.
func (mn *MultiNotifier) SendDailySummary(ctx context.Context, stats *models.LedgerStats) error {
	title := fmt.Sprintf("Daily Summary - %s", time.Now().Format("2006-01-02"))

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Total Trades: %d (open %d)\n", stats.TotalTrades, stats.OpenTrades))
	sb.WriteString(fmt.Sprintf("Winning: %d | Losing: %d\n", stats.Wins, stats.Losses))
	sb.WriteString(fmt.Sprintf("Win Rate: %.1f%%\n", stats.WinRate))
	sb.WriteString(fmt.Sprintf("Targets Hit: %d | Stopped Out: %d\n", stats.TargetsHit, stats.StoppedOut))
	sb.WriteString(fmt.Sprintf("Total P&L: %s\n", utils.FormatIndianCurrency(stats.TotalPnL)))
	sb.WriteString(fmt.Sprintf("Capital: %s (%.2f%%)", utils.FormatIndianCurrency(stats.Capital), stats.ReturnPercent))

	return mn.Send(ctx, Notification{
		Type:    NotificationSummary,
		Title:   title,
		Message: sb.String(),
		Data: map[string]interface{}{
			"total_trades": stats.TotalTrades,
			"wins":         stats.Wins,
			"losses":       stats.Losses,
			"win_rate":     stats.WinRate,
			"total_pnl":    stats.TotalPnL,
			"capital":      stats.Capital,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	title := "Error Occurred"
	message := fmt.Sprintf("Context: %s\nError: %v\nTime: %s",
		errContext, err, time.Now().Format("15:04:05"))

	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "NiftyTrader/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// TelegramNotifier sends notifications via Telegram bot.
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new TelegramNotifier.
func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		enabled:  cfg.Enabled && cfg.BotToken != "" && cfg.ChatID != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the name of the notifier.
func (t *TelegramNotifier) Name() string {
	return "telegram"
}

// IsEnabled returns whether the notifier is enabled.
func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

// Send sends a notification via Telegram.
func (t *TelegramNotifier) Send(ctx context.Context, n Notification) error {
	if !t.enabled {
		return nil
	}

	// HTML parse mode
	text := fmt.Sprintf("<b>%s</b>\n\n%s", escapeHTML(n.Title), escapeHTML(n.Message))

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling telegram payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating telegram request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// escapeHTML escapes HTML special characters for Telegram.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EmailNotifier sends notifications via email using SMTP.
type EmailNotifier struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       string
	enabled  bool
}

// NewEmailNotifier creates a new EmailNotifier.
func NewEmailNotifier(cfg config.EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
		to:       cfg.To,
		enabled:  cfg.Enabled && cfg.SMTPHost != "" && cfg.From != "" && cfg.To != "",
	}
}

// Name returns the name of the notifier.
func (e *EmailNotifier) Name() string {
	return "email"
}

// IsEnabled returns whether the notifier is enabled.
func (e *EmailNotifier) IsEnabled() bool {
	return e.enabled
}

// Send sends a notification via email.
func (e *EmailNotifier) Send(ctx context.Context, n Notification) error {
	if !e.enabled {
		return nil
	}

	subject := n.Title
	body := n.Message

	if len(n.Data) > 0 {
		dataJSON, _ := json.MarshalIndent(n.Data, "", "  ")
		body += "\n\n---\nData:\n" + string(dataJSON)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		e.from, e.to, subject, body)

	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}

	// Implicit TLS on 465, STARTTLS or plain otherwise
	if e.smtpPort == 465 {
		return e.sendWithTLS(addr, auth, msg)
	}

	return smtp.SendMail(addr, auth, e.from, []string{e.to}, []byte(msg))
}

// sendWithTLS sends email using implicit TLS (port 465).
func (e *EmailNotifier) sendWithTLS(addr string, auth smtp.Auth, msg string) error {
	tlsConfig := &tls.Config{
		ServerName: e.smtpHost,
	}

	conn, err := tls.Dial("tcp", addr, tlsConfig)
	if err != nil {
		return fmt.Errorf("TLS dial failed: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := client.Mail(e.from); err != nil {
		return fmt.Errorf("SMTP MAIL command failed: %w", err)
	}

	if err := client.Rcpt(e.to); err != nil {
		return fmt.Errorf("SMTP RCPT command failed: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("SMTP DATA command failed: %w", err)
	}

	_, err = w.Write([]byte(msg))
	if err != nil {
		return fmt.Errorf("writing email body: %w", err)
	}

	err = w.Close()
	if err != nil {
		return fmt.Errorf("closing email body: %w", err)
	}

	return client.Quit()
}

// NoOpNotifier is a notifier that does nothing (for testing or disabled notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendSignal does nothing.
func (n *NoOpNotifier) SendSignal(ctx context.Context, signal *models.Signal) error {
	return nil
}

// SendTradeOpened does nothing.
func (n *NoOpNotifier) SendTradeOpened(ctx context.Context, trade *models.PaperTrade) error {
	return nil
}

// SendTradeClosed does nothing.
func (n *NoOpNotifier) SendTradeClosed(ctx context.Context, trade *models.PaperTrade) error {
	return nil
}

// SendDailySummary does nothing.
func (n *NoOpNotifier) SendDailySummary(ctx context.Context, stats *models.LedgerStats) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}

var (
	_ Notifier = (*MultiNotifier)(nil)
	_ Notifier = (*NoOpNotifier)(nil)
)

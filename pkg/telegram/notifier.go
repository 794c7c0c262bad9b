// Package telegram sends run summaries to a Telegram chat via the Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier posts HTML-formatted messages to one chat. A Notifier with an
// empty token or chat id is disabled: sends become no-ops so an unconfigured
// deployment never fails a run.
type Notifier struct {
	botToken string
	chatID   string
	siteURL  string
	apiBase  string
	http     *http.Client
}

// Option configures the notifier.
type Option func(*Notifier)

// WithAPIBase overrides the Telegram API base URL, mainly for tests.
func WithAPIBase(u string) Option {
	return func(n *Notifier) {
		n.apiBase = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(n *Notifier) {
		n.http = hc
	}
}

// NewNotifier creates a Notifier. siteURL is linked at the bottom of update
// messages.
func NewNotifier(botToken, chatID, siteURL string, opts ...Option) *Notifier {
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		siteURL:  siteURL,
		apiBase:  defaultAPIBase,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Enabled reports whether the notifier is configured to send.
func (n *Notifier) Enabled() bool {
	return n.botToken != "" && n.chatID != ""
}

// NotifyRun sends the update summary for one completed matching run.
func (n *Notifier) NotifyRun(ctx context.Context, toplistName string, wines, matches int, duration time.Duration) error {
	if !n.Enabled() {
		zap.L().Debug("telegram disabled, skipping run notification")
		return nil
	}

	msg := "🍷 <b>Wine List Updated</b>\n\n"
	msg += fmt.Sprintf("📋 <b>List:</b> %s\n", toplistName)
	msg += fmt.Sprintf("🔢 <b>Wines Processed:</b> %d\n", wines)
	msg += fmt.Sprintf("🎯 <b>Matches Found:</b> %d\n", matches)
	if wines > 0 {
		msg += fmt.Sprintf("📊 <b>Match Rate:</b> %.1f%%\n", float64(matches)/float64(wines)*100)
	}
	msg += fmt.Sprintf("⏱ <b>Duration:</b> %.1fs\n", duration.Seconds())
	msg += fmt.Sprintf("📅 <b>Updated:</b> %s\n", time.Now().Format("2006-01-02 15:04:05"))
	if n.siteURL != "" {
		msg += fmt.Sprintf("\n🔗 <a href=%q>View Wine List</a>", n.siteURL)
	}

	return n.send(ctx, msg)
}

// NotifyError sends an error alert for a failed run.
func (n *Notifier) NotifyError(ctx context.Context, toplistName, errMsg string) error {
	if !n.Enabled() {
		return nil
	}

	msg := "❌ <b>Wine Sync Error</b>\n\n"
	if toplistName != "" {
		msg += fmt.Sprintf("📋 <b>List:</b> %s\n", toplistName)
	}
	msg += fmt.Sprintf("🚨 <b>Error:</b> %s\n", errMsg)
	msg += fmt.Sprintf("📅 <b>Time:</b> %s", time.Now().Format("2006-01-02 15:04:05"))

	return n.send(ctx, msg)
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) send(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return eris.Wrap(err, "telegram: marshal message")
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "telegram: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "telegram: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "telegram: read response")
	}

	var result sendMessageResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return eris.Errorf("telegram: unexpected response (%d): %s", resp.StatusCode, string(respBody))
	}
	if !result.OK {
		return eris.Errorf("telegram: API error: %s", result.Description)
	}
	return nil
}

package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendingDigest/internal/domain"
	"TrendingDigest/internal/ports"
)

const (
	defaultAPIBase = "https://api.telegram.org"
	digestHeader   = "今日 GitHub 热门项目已更新"
)

// MarkdownV2 reserves these outside and inside entities.
var (
	textEscaper = strings.NewReplacer(
		`\`, `\\`, "_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
		"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`, "=", `\=`,
		"|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
	)
	linkEscaper = strings.NewReplacer(`\`, `\\`, ")", `\)`)
)

// Notifier posts the daily digest to a Telegram chat via the bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. A nil client gets a
// short default timeout.
func NewNotifier(botToken, chatID string, client *http.Client) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   client,
	}
}

// PublishDigest sends one MarkdownV2 message listing projects in order.
// An empty list sends nothing.
func (n *Notifier) PublishDigest(ctx context.Context, projects []domain.EnrichedProject) error {
	if n.botToken == "" || n.chatID == "" {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if len(projects) == 0 {
		return nil
	}

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", FormatDigest(projects))
	form.Set("parse_mode", "MarkdownV2")
	form.Set("disable_web_page_preview", "true")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.apiBase, "/"), n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send digest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendMessage: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// FormatDigest renders projects as a numbered MarkdownV2 list of linked
// localized names followed by the comment.
func FormatDigest(projects []domain.EnrichedProject) string {
	var b strings.Builder
	b.WriteString("*" + EscapeMarkdown(digestHeader) + "*\n")
	for i, p := range projects {
		name := p.NameZH
		if name == "" {
			name = p.Name
		}
		fmt.Fprintf(&b, "\n%d\\. [%s](%s)\n%s\n", i+1, EscapeMarkdown(name), linkEscaper.Replace(p.URL), EscapeMarkdown(p.Comment))
	}
	return strings.TrimRight(b.String(), "\n")
}

// EscapeMarkdown escapes every MarkdownV2 reserved character in s.
func EscapeMarkdown(s string) string {
	return textEscaper.Replace(s)
}

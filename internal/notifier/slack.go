package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/leadradar/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends lead alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each lead to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends each lead as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(leads []model.Lead) error {
	if len(leads) == 0 {
		return nil
	}

	failures := 0
	for i, l := range leads {
		if i > 0 {
			time.Sleep(500 * time.Millisecond)
		}

		if err := s.sendMessage(l); err != nil {
			s.logger.Error("slack notification failed", "company", l.Company, "role", l.Role, "error", err)
			failures++
		}
	}

	sent := len(leads) - failures
	if failures == len(leads) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(l model.Lead) error {
	body, err := json.Marshal(buildPayload(l))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := model.ParseRetryAfter(resp.Header.Get("Retry-After"))
		if wait <= 0 {
			wait = time.Second
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after", wait.String())
		time.Sleep(wait)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "company", l.Company, "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "company", l.Company)
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy lead notification to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.Lead{
		Company:   "LeadRadar Test",
		Profile:   "Integration check",
		Contacts:  []string{"nobody@example.com"},
		Context:   "Test notification, integration verified",
		Timestamp: float64(time.Now().Unix()),
		SourceURL: "https://www.reddit.com/r/startups",
		Role:      "test",
		Status:    model.DefaultStatus,
	}
	return n.Notify([]model.Lead{test})
}

// roleTitle turns "part_time_data_engineer" into "Part Time Data Engineer".
func roleTitle(role string) string {
	words := strings.Fields(strings.ReplaceAll(role, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func buildPayload(l model.Lead) slackPayload {
	postedText := "Just detected"
	if l.Timestamp > 0 {
		postedText = time.Unix(int64(l.Timestamp), 0).UTC().Format(time.RFC1123)
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🎯 " + l.Company + ": " + roleTitle(l.Role)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + l.Company},
				{Type: "mrkdwn", Text: "*Status:*\n" + l.Status},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + postedText},
				{Type: "mrkdwn", Text: "*Role:*\n" + roleTitle(l.Role)},
			},
		},
		{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: "> " + l.Context},
		},
	}

	if l.Profile != "" || len(l.Contacts) > 0 {
		var b strings.Builder
		if l.Profile != "" {
			fmt.Fprintf(&b, "*Profile:* %s", l.Profile)
		}
		if len(l.Contacts) > 0 {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "*Contacts:* %s", strings.Join(l.Contacts, ", "))
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: b.String()},
		})
	}

	blocks = append(blocks,
		slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "View Post"},
					URL:   l.SourceURL,
					Style: "primary",
				},
			},
		},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}

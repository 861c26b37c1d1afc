package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"riskgate/pkg/models"
)

// ChatConfig configures the chat-bot webhook channel.
type ChatConfig struct {
	WebhookURL string
	Headers    map[string]string
}

// ChatChannel posts alerts to a chat-bot webhook as JSON.
type ChatChannel struct {
	cfg    ChatConfig
	client *http.Client
	now    func() time.Time
}

// NewChatChannel creates the webhook channel.
func NewChatChannel(cfg ChatConfig) *ChatChannel {
	return &ChatChannel{
		cfg:    cfg,
		client: &http.Client{},
		now:    time.Now,
	}
}

// Name implements Channel.
func (c *ChatChannel) Name() string {
	return "chat"
}

// Configured implements Channel.
func (c *ChatChannel) Configured() bool {
	return c.cfg.WebhookURL != ""
}

type chatMessage struct {
	Text           string  `json:"text"`
	Severity       string  `json:"severity,omitempty"`
	AttackType     string  `json:"attack_type,omitempty"`
	RiskScore      float64 `json:"risk_score,omitempty"`
	SourceIP       string  `json:"source_ip,omitempty"`
	TargetHost     string  `json:"target_host,omitempty"`
	AccessDecision string  `json:"access_decision,omitempty"`
}

// Send implements Channel.
func (c *ChatChannel) Send(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) error {
	text := fmt.Sprintf(
		"SOC SECURITY ALERT\nSeverity: %s\nAttack Type: %s\nRisk Score: %.2f/100\nSource IP: %s\nTarget: %s\nDecision: %s\nTime: %s",
		assessment.Severity,
		event.AttackType,
		assessment.RiskScore,
		event.SourceIP,
		event.TargetHost,
		assessment.AccessDecision,
		c.now().Format("2006-01-02 15:04:05"),
	)
	return c.post(ctx, chatMessage{
		Text:           text,
		Severity:       string(assessment.Severity),
		AttackType:     event.AttackType,
		RiskScore:      assessment.RiskScore,
		SourceIP:       event.SourceIP,
		TargetHost:     event.TargetHost,
		AccessDecision: string(assessment.AccessDecision),
	})
}

// SendSummary implements Channel.
func (c *ChatChannel) SendSummary(ctx context.Context, summary Summary) error {
	text := fmt.Sprintf(
		"DAILY SOC SUMMARY\nTotal Events: %d\nBlocked: %d\nRestricted: %d\nAllowed: %d\nAverage Risk Score: %.1f\nCritical Alerts: %d",
		summary.TotalEvents,
		summary.Blocked,
		summary.Restricted,
		summary.Allowed,
		summary.AvgRisk,
		summary.Critical,
	)
	return c.post(ctx, chatMessage{Text: text})
}

func (c *ChatChannel) post(ctx context.Context, msg chatMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("chat webhook request failed: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("chat webhook returned status %s", resp.Status)
	}
	return nil
}

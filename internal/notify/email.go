package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"riskgate/pkg/models"
)

// UserPref is one registered user's notification preference. Mode "all"
// receives every alert, "critical" only alerts at or above the critical
// risk threshold, "off" receives nothing.
type UserPref struct {
	Email string
	Mode  string
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	Recipients        []string
	Users             []UserPref
	CriticalThreshold float64
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailChannel delivers alerts over SMTP as one batched message to all
// resolved recipients.
type EmailChannel struct {
	cfg  EmailConfig
	send sendMailFunc
	now  func() time.Time
}

// NewEmailChannel creates the SMTP channel.
func NewEmailChannel(cfg EmailConfig) *EmailChannel {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.CriticalThreshold <= 0 {
		cfg.CriticalThreshold = 80
	}
	return &EmailChannel{
		cfg:  cfg,
		send: smtp.SendMail,
		now:  time.Now,
	}
}

// Name implements Channel.
func (c *EmailChannel) Name() string {
	return "email"
}

// Configured implements Channel.
func (c *EmailChannel) Configured() bool {
	return c.cfg.Host != "" && c.cfg.Username != "" && c.cfg.Password != ""
}

// Recipients merges the static recipient list with directory users opted in
// for this risk score, de-duplicated in first-seen order.
func (c *EmailChannel) Recipients(risk float64) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" {
			return
		}
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}

	for _, r := range c.cfg.Recipients {
		add(r)
	}
	for _, u := range c.cfg.Users {
		switch strings.ToLower(u.Mode) {
		case "all":
			add(u.Email)
		case "critical":
			if risk >= c.cfg.CriticalThreshold {
				add(u.Email)
			}
		}
	}
	return out
}

// Send implements Channel. One message goes to all resolved recipients.
func (c *EmailChannel) Send(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) error {
	to := c.Recipients(assessment.RiskScore)
	if len(to) == 0 {
		return ErrNoRecipients
	}

	subject := fmt.Sprintf("[%s] SOC Alert: %s Detected", assessment.Severity, event.AttackType)
	body := fmt.Sprintf(
		"SOC SECURITY ALERT - %s\n\n"+
			"Attack Type: %s\n"+
			"Risk Score: %.2f/100\n"+
			"Source IP: %s\n"+
			"Target: %s\n"+
			"Decision: %s\n\n"+
			"Time: %s\n",
		assessment.Severity,
		event.AttackType,
		assessment.RiskScore,
		event.SourceIP,
		event.TargetHost,
		assessment.AccessDecision,
		c.now().Format("2006-01-02 15:04:05"),
	)

	return c.deliver(ctx, to, subject, body)
}

// SendSummary implements Channel. Critical-only users receive summaries too;
// a roll-up is not a per-event alert.
func (c *EmailChannel) SendSummary(ctx context.Context, summary Summary) error {
	to := c.Recipients(c.cfg.CriticalThreshold)
	if len(to) == 0 {
		return ErrNoRecipients
	}

	subject := fmt.Sprintf("Daily SOC Security Report - %s", c.now().Format("2006-01-02"))
	body := fmt.Sprintf(
		"DAILY SOC SUMMARY\n\n"+
			"Total Events: %d\n"+
			"Blocked: %d\n"+
			"Restricted: %d\n"+
			"Allowed: %d\n\n"+
			"Average Risk Score: %.1f\n"+
			"Critical Alerts: %d\n\n"+
			"Report generated: %s\n",
		summary.TotalEvents,
		summary.Blocked,
		summary.Restricted,
		summary.Allowed,
		summary.AvgRisk,
		summary.Critical,
		c.now().Format("2006-01-02 15:04:05"),
	)

	return c.deliver(ctx, to, subject, body)
}

func (c *EmailChannel) deliver(ctx context.Context, to []string, subject, body string) error {
	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		c.cfg.From,
		strings.Join(to, ", "),
		subject,
		body,
	))

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	auth := smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)

	// net/smtp has no context support; bound the call here.
	done := make(chan error, 1)
	go func() {
		done <- c.send(addr, auth, c.cfg.From, to, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

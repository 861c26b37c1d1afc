package notify

import (
	"context"
	"errors"
	"time"

	"riskgate/internal/logger"
	"riskgate/internal/metrics"
	"riskgate/pkg/models"
)

// Router fans alert notifications out to every configured channel.
type Router struct {
	channels []Channel
	timeout  time.Duration
}

// NewRouter creates a router over the given channels.
func NewRouter(timeout time.Duration, channels ...Channel) *Router {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{channels: channels, timeout: timeout}
}

// Channels returns the configured channel names.
func (r *Router) Channels() []string {
	names := make([]string, 0, len(r.channels))
	for _, ch := range r.channels {
		names = append(names, ch.Name())
	}
	return names
}

// Blank returns a result map with every channel marked not delivered.
func (r *Router) Blank() map[string]bool {
	results := make(map[string]bool, len(r.channels))
	for _, ch := range r.channels {
		results[ch.Name()] = false
	}
	return results
}

// Send attempts best-effort delivery on every configured channel. Each
// channel gets its own bounded deadline; a failure on one channel never
// aborts the others and never propagates to the caller.
func (r *Router) Send(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) map[string]bool {
	results := r.Blank()
	for _, ch := range r.channels {
		if !ch.Configured() {
			continue
		}
		results[ch.Name()] = r.attempt(ctx, ch.Name(), func(sendCtx context.Context) error {
			return ch.Send(sendCtx, event, assessment)
		})
	}
	return results
}

// SendSummary delivers a periodic summary to every configured channel. It
// is not subject to the alert gate.
func (r *Router) SendSummary(ctx context.Context, summary Summary) map[string]bool {
	results := r.Blank()
	for _, ch := range r.channels {
		if !ch.Configured() {
			continue
		}
		results[ch.Name()] = r.attempt(ctx, ch.Name(), func(sendCtx context.Context) error {
			return ch.SendSummary(sendCtx, summary)
		})
	}
	return results
}

func (r *Router) attempt(ctx context.Context, name string, send func(context.Context) error) bool {
	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := send(sendCtx); err != nil {
		if errors.Is(err, ErrNoRecipients) {
			logger.Debugf("Notification via %s skipped: %v", name, err)
		} else {
			logger.Warnf("Notification via %s failed: %v", name, err)
		}
		metrics.Notifications.WithLabelValues(name, "failure").Inc()
		return false
	}
	metrics.Notifications.WithLabelValues(name, "success").Inc()
	return true
}

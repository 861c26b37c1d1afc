// Package engine orchestrates the Zero-Trust decision pipeline: risk
// scoring via policy thresholds, alert gating, and notification fan-out.
//
// Process and Route are deliberately separate calls. Process is pure
// arithmetic and can score batches deterministically with no network in
// sight; Route performs I/O and is invoked only for events the caller
// decides warrant action.
package engine

import (
	"context"

	"riskgate/internal/alertgate"
	"riskgate/internal/notify"
	"riskgate/internal/policy"
	"riskgate/pkg/models"
)

// Config controls the decision engine.
type Config struct {
	Thresholds policy.Thresholds
	Bands      policy.SeverityBands
	AutoNotify bool
}

// Engine turns scored events into access decisions and drives automated
// response. It is safe for concurrent use.
type Engine struct {
	cfg    Config
	gate   *alertgate.Gate
	router *notify.Router
}

// New creates an engine. Gate and router may be nil for callers that only
// need the pure Process step.
func New(cfg Config, gate *alertgate.Gate, router *notify.Router) *Engine {
	if cfg.Thresholds == (policy.Thresholds{}) {
		cfg.Thresholds = policy.DefaultThresholds()
	}
	if cfg.Bands == (policy.SeverityBands{}) {
		cfg.Bands = policy.DefaultSeverityBands()
	}
	return &Engine{cfg: cfg, gate: gate, router: router}
}

// Process computes the risk assessment for one event. It never fails for
// well-formed input; malformed input returns a *models.ValidationError.
// The event must carry a normalized risk score: batch normalization is the
// caller's responsibility.
func (e *Engine) Process(event *models.ScoredEvent) (models.RiskAssessment, error) {
	if event == nil {
		return models.RiskAssessment{}, &models.ValidationError{Field: "event", Reason: "is nil"}
	}
	if err := event.Validate(); err != nil {
		return models.RiskAssessment{}, err
	}
	if event.RiskScore == nil {
		return models.RiskAssessment{}, &models.ValidationError{Field: "risk_score", Reason: "is missing; normalize the batch first"}
	}

	risk := *event.RiskScore
	return models.RiskAssessment{
		RiskScore:      risk,
		AccessDecision: e.cfg.Thresholds.Decide(risk),
		Severity:       e.cfg.Bands.Classify(risk),
	}, nil
}

// ShouldAlert runs the gate's atomic eligibility-and-cooldown check. It is
// cheap and performs no I/O, so callers may keep it on the scoring path
// while deferring the actual sends.
func (e *Engine) ShouldAlert(event *models.ScoredEvent, assessment models.RiskAssessment) bool {
	if !e.cfg.AutoNotify || e.gate == nil {
		return false
	}
	return e.gate.ShouldAlert(event, assessment)
}

// Notify fans the event out to all configured channels. Channel transport
// failures surface only as false entries in the result map.
func (e *Engine) Notify(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) map[string]bool {
	if e.router == nil {
		return map[string]bool{}
	}
	return e.router.Send(ctx, event, assessment)
}

// Route applies the gate and, if the event fires, dispatches notifications.
// Suppressed or ineligible events return every configured channel mapped to
// false without any send attempt.
func (e *Engine) Route(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) map[string]bool {
	if e.router == nil {
		return map[string]bool{}
	}
	if !e.ShouldAlert(event, assessment) {
		return e.router.Blank()
	}
	return e.router.Send(ctx, event, assessment)
}

package notify

import (
	"context"
	"errors"

	"riskgate/pkg/models"
)

// ErrNoRecipients marks a send that resolved zero recipients. The router
// reports it as a quiet "not delivered", not a failure.
var ErrNoRecipients = errors.New("no recipients resolved")

// Channel delivers alerts to one destination type.
type Channel interface {
	Name() string
	Configured() bool
	Send(ctx context.Context, event *models.ScoredEvent, assessment models.RiskAssessment) error
	SendSummary(ctx context.Context, summary Summary) error
}

// Summary is the periodic roll-up sent to all channels.
type Summary struct {
	TotalEvents int     `json:"total_events"`
	Blocked     int     `json:"blocked"`
	Restricted  int     `json:"restricted"`
	Allowed     int     `json:"allowed"`
	AvgRisk     float64 `json:"avg_risk"`
	Critical    int     `json:"critical"`
}

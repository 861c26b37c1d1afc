package policy

import (
	"fmt"

	"riskgate/pkg/models"
)

// Thresholds holds the two access-decision cut points. Both are inclusive
// lower bounds: a risk score equal to a threshold takes the stricter branch.
type Thresholds struct {
	Block    float64
	Restrict float64
}

// DefaultThresholds returns the stock Zero-Trust policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Block: 70, Restrict: 30}
}

// Validate rejects threshold orderings that would make RESTRICT unreachable
// or invert the policy.
func (t Thresholds) Validate() error {
	if t.Restrict > t.Block {
		return fmt.Errorf("restrict threshold %.2f exceeds block threshold %.2f", t.Restrict, t.Block)
	}
	return nil
}

// Decide maps a risk score to an access decision. The decision is a pure
// function of the score and the two thresholds.
func (t Thresholds) Decide(risk float64) models.Decision {
	switch {
	case risk >= t.Block:
		return models.DecisionBlock
	case risk >= t.Restrict:
		return models.DecisionRestrict
	default:
		return models.DecisionAllow
	}
}

// SeverityBands maps risk scores to presentation severity for alerts and
// summaries. These cut points are deliberately independent of the
// access-decision thresholds: they answer "how to describe it", not
// "what to do".
type SeverityBands struct {
	Critical float64
	High     float64
	Medium   float64
}

// DefaultSeverityBands returns the stock banding.
func DefaultSeverityBands() SeverityBands {
	return SeverityBands{Critical: 80, High: 60, Medium: 30}
}

// Validate rejects band orderings that would shadow a tier.
func (b SeverityBands) Validate() error {
	if b.High > b.Critical {
		return fmt.Errorf("high band %.2f exceeds critical band %.2f", b.High, b.Critical)
	}
	if b.Medium > b.High {
		return fmt.Errorf("medium band %.2f exceeds high band %.2f", b.Medium, b.High)
	}
	return nil
}

// Classify maps a risk score to its severity band.
func (b SeverityBands) Classify(risk float64) models.Severity {
	switch {
	case risk >= b.Critical:
		return models.SeverityCritical
	case risk >= b.High:
		return models.SeverityHigh
	case risk >= b.Medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

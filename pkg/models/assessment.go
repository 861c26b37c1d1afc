package models

// Decision is the Zero-Trust access decision for one event.
type Decision string

const (
	DecisionAllow    Decision = "ALLOW"
	DecisionRestrict Decision = "RESTRICT"
	DecisionBlock    Decision = "BLOCK"
)

// Severity describes how an assessment is presented in alerts and
// summaries. It is banded independently of the access decision.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// RiskAssessment is the engine output for one scored event.
type RiskAssessment struct {
	RiskScore      float64  `json:"risk_score"`
	AccessDecision Decision `json:"access_decision"`
	Severity       Severity `json:"severity"`
}

// DecisionRecord is the persisted form of one evaluated event.
type DecisionRecord struct {
	Event          *ScoredEvent    `json:"event"`
	RiskScore      float64         `json:"risk_score"`
	AccessDecision Decision        `json:"access_decision"`
	Severity       Severity        `json:"severity"`
	Alerted        bool            `json:"alerted"`
	Notifications  map[string]bool `json:"notifications,omitempty"`
}

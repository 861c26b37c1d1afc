package models

import (
	"fmt"
	"time"
)

// ScoredEvent is one telemetry record carrying an externally computed
// anomaly score (or an already-normalized risk score). It is immutable
// once parsed; the engine only reads it.
type ScoredEvent struct {
	EntityID     string   `json:"entity_id,omitempty"`
	EventType    string   `json:"event_type,omitempty"`
	AttackType   string   `json:"attack_type"`
	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
	RiskScore    *float64 `json:"risk_score,omitempty"`
	SourceIP     string   `json:"source_ip"`
	TargetHost   string   `json:"target_host"`
	Resource     string   `json:"resource,omitempty"`
	BytesOut     int64    `json:"bytes_out,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: field %q %s", e.Field, e.Reason)
}

// Validate checks the fields every consumer relies on. An event must carry
// either a raw anomaly score or a pre-normalized risk score.
func (e *ScoredEvent) Validate() error {
	if e.AttackType == "" {
		return &ValidationError{Field: "attack_type", Reason: "is required"}
	}
	if e.SourceIP == "" {
		return &ValidationError{Field: "source_ip", Reason: "is required"}
	}
	if e.TargetHost == "" {
		return &ValidationError{Field: "target_host", Reason: "is required"}
	}
	if e.AnomalyScore == nil && e.RiskScore == nil {
		return &ValidationError{Field: "anomaly_score", Reason: "or risk_score is required"}
	}
	return nil
}

// CooldownKey identifies the alert dedup bucket for this event.
func (e *ScoredEvent) CooldownKey() string {
	return e.SourceIP + "_" + e.AttackType
}

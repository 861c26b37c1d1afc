package models

import "time"

// Anomaly is one behavioral deviation found by a check.
type Anomaly struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Score       int    `json:"score"`
}

// BehaviorAssessment summarizes the outcome of one behavior check.
type BehaviorAssessment struct {
	EntityID    string    `json:"entity_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	SourceIP    string    `json:"source_ip,omitempty"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Resource    string    `json:"resource,omitempty"`
	Anomalies   []Anomaly `json:"anomalies"`
	RiskScore   int       `json:"risk_score"`
	RiskLevel   string    `json:"risk_level"`
	IsAnomalous bool      `json:"is_anomalous"`
}

// EntityCount pairs an entity with an anomaly count.
type EntityCount struct {
	EntityID string `json:"entity_id"`
	Count    int    `json:"count"`
}

// AnomalySummary aggregates recent behavior anomalies for read-side views.
type AnomalySummary struct {
	TotalAnomalies int            `json:"total_anomalies"`
	ByType         map[string]int `json:"by_type"`
	ByEntity       map[string]int `json:"by_entity"`
	BySeverity     map[string]int `json:"by_severity"`
	TopEntities    []EntityCount  `json:"top_entities"`
}

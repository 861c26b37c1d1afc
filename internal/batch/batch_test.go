package batch

import (
	"os"
	"path/filepath"
	"testing"

	"riskgate/internal/policy"
	"riskgate/pkg/models"
)

func anomaly(v float64) *float64 { return &v }

func TestScoreNormalizesWholeBatch(t *testing.T) {
	events := []*models.ScoredEvent{
		{AttackType: "Brute Force", SourceIP: "10.0.0.1", TargetHost: "h1", AnomalyScore: anomaly(-0.5)},
		{AttackType: "Port Scan", SourceIP: "10.0.0.2", TargetHost: "h2", AnomalyScore: anomaly(0)},
		{AttackType: "Benign", SourceIP: "10.0.0.3", TargetHost: "h3", AnomalyScore: anomaly(0.5)},
	}

	records := Score(events, policy.DefaultThresholds(), policy.DefaultSeverityBands())
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	if records[0].RiskScore != 100.0 || records[0].AccessDecision != models.DecisionBlock {
		t.Fatalf("most anomalous event should block at 100: %+v", records[0])
	}
	if records[1].RiskScore != 50.0 || records[1].AccessDecision != models.DecisionRestrict {
		t.Fatalf("midpoint event should restrict at 50: %+v", records[1])
	}
	if records[2].RiskScore != 0.0 || records[2].AccessDecision != models.DecisionAllow {
		t.Fatalf("least anomalous event should allow at 0: %+v", records[2])
	}
}

func TestScorePrecomputedRiskWins(t *testing.T) {
	events := []*models.ScoredEvent{
		{AttackType: "DDoS", SourceIP: "10.0.0.1", TargetHost: "h1", AnomalyScore: anomaly(-0.5), RiskScore: anomaly(12)},
		{AttackType: "Port Scan", SourceIP: "10.0.0.2", TargetHost: "h2", AnomalyScore: anomaly(0.5)},
	}

	records := Score(events, policy.DefaultThresholds(), policy.DefaultSeverityBands())
	if records[0].RiskScore != 12 {
		t.Fatalf("precomputed risk score must be preserved, got %.2f", records[0].RiskScore)
	}
	// The remaining event forms a one-element normalization batch.
	if records[1].RiskScore != 50.0 {
		t.Fatalf("expected midpoint for singleton batch, got %.2f", records[1].RiskScore)
	}
}

func TestScoreDropsInvalidEvents(t *testing.T) {
	events := []*models.ScoredEvent{
		{AttackType: "DDoS", SourceIP: "10.0.0.1", TargetHost: "h1", AnomalyScore: anomaly(-0.5)},
		{SourceIP: "10.0.0.2", TargetHost: "h2", AnomalyScore: anomaly(0.5)},
	}

	records := Score(events, policy.DefaultThresholds(), policy.DefaultSeverityBands())
	if len(records) != 1 {
		t.Fatalf("expected invalid event to be dropped, got %d records", len(records))
	}
}

func TestLoadEventsJSONLSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	content := `{"attack_type":"DDoS","source_ip":"1.2.3.4","target_host":"lb","anomaly_score":-0.2}
not json
{"attack_type":"Port Scan","source_ip":"1.2.3.5","target_host":"fw","anomaly_score":0.3}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	events, err := LoadEventsJSONL(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].AttackType != "DDoS" || events[1].AttackType != "Port Scan" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestLoadEventsJSONLMissingFile(t *testing.T) {
	if _, err := LoadEventsJSONL(filepath.Join(t.TempDir(), "absent.jsonl")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSummarize(t *testing.T) {
	records := []*models.DecisionRecord{
		{RiskScore: 90, AccessDecision: models.DecisionBlock, Severity: models.SeverityCritical},
		{RiskScore: 50, AccessDecision: models.DecisionRestrict, Severity: models.SeverityMedium},
		{RiskScore: 10, AccessDecision: models.DecisionAllow, Severity: models.SeverityLow},
	}

	summary := Summarize(records)
	if summary.TotalEvents != 3 || summary.Blocked != 1 || summary.Restricted != 1 || summary.Allowed != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if summary.AvgRisk != 50 {
		t.Fatalf("expected average risk 50, got %.2f", summary.AvgRisk)
	}
	if summary.Critical != 1 {
		t.Fatalf("expected 1 critical, got %d", summary.Critical)
	}
}

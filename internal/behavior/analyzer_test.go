package behavior

import (
	"testing"
	"time"

	"riskgate/pkg/models"
)

const mib = 1024 * 1024

// weekday business-hours login used to build baselines
var baselineTime = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC) // Tuesday

func seedLogins(a *Analyzer, entity string, n int) {
	for i := 0; i < n; i++ {
		a.AnalyzeLogin(entity, baselineTime, "192.168.1.10")
	}
}

func TestAnalyzeLoginUnusualHour(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	nightLogin := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	result := a.AnalyzeLogin("alice", nightLogin, "192.168.1.10")

	if !result.IsAnomalous {
		t.Fatalf("3am login against a 10am baseline should be anomalous")
	}
	if len(result.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %+v", result.Anomalies)
	}
	anomaly := result.Anomalies[0]
	if anomaly.Type != "unusual_login_time" || anomaly.Severity != "high" {
		t.Fatalf("unexpected anomaly: %+v", anomaly)
	}
	if result.RiskScore != 40 {
		t.Fatalf("expected risk 40, got %d", result.RiskScore)
	}
	if result.RiskLevel != "MEDIUM" {
		t.Fatalf("expected MEDIUM, got %s", result.RiskLevel)
	}
}

func TestAnalyzeLoginSlightlyUnusualHour(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	eveningLogin := time.Date(2026, 3, 11, 20, 0, 0, 0, time.UTC)
	result := a.AnalyzeLogin("alice", eveningLogin, "192.168.1.10")

	if len(result.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %+v", result.Anomalies)
	}
	if result.Anomalies[0].Severity != "medium" || result.RiskScore != 20 {
		t.Fatalf("8pm should be the moderate branch: %+v", result.Anomalies[0])
	}
}

func TestAnalyzeLoginNormalHourQuiet(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	result := a.AnalyzeLogin("alice", baselineTime.Add(24*time.Hour), "192.168.1.10")
	if result.IsAnomalous {
		t.Fatalf("baseline-hour login should be quiet: %+v", result.Anomalies)
	}
	if result.RiskLevel != "NORMAL" {
		t.Fatalf("expected NORMAL, got %s", result.RiskLevel)
	}
}

func TestAnalyzeLoginNewSourceIP(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	result := a.AnalyzeLogin("alice", baselineTime.Add(24*time.Hour), "10.9.9.9")
	if len(result.Anomalies) != 1 || result.Anomalies[0].Type != "new_source_ip" {
		t.Fatalf("expected new_source_ip anomaly, got %+v", result.Anomalies)
	}
	if result.RiskScore != 30 {
		t.Fatalf("expected risk 30, got %d", result.RiskScore)
	}
}

func TestAnalyzeLoginNewIPRequiresBaseline(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 5)

	// Too little history for the new-IP check to mean anything.
	result := a.AnalyzeLogin("alice", baselineTime, "10.9.9.9")
	if result.IsAnomalous {
		t.Fatalf("new IP with a thin baseline should not be flagged: %+v", result.Anomalies)
	}
}

func TestAnalyzeLoginWeekend(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	saturday := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	result := a.AnalyzeLogin("alice", saturday, "192.168.1.10")

	if len(result.Anomalies) != 1 || result.Anomalies[0].Type != "weekend_login" {
		t.Fatalf("expected weekend_login anomaly, got %+v", result.Anomalies)
	}
	if result.RiskScore != 25 {
		t.Fatalf("expected risk 25, got %d", result.RiskScore)
	}
}

func TestAnalyzeTransferZScore(t *testing.T) {
	a := NewAnalyzer(Config{})
	for i := 0; i < 5; i++ {
		a.AnalyzeTransfer("bob", 1*mib, "192.168.0.2")
		a.AnalyzeTransfer("bob", 2*mib, "192.168.0.2")
	}

	// avg 1.5MB, stddev 0.5MB: a 10MB transfer is 17 sigmas out.
	result := a.AnalyzeTransfer("bob", 10*mib, "192.168.1.50")
	if len(result.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %+v", result.Anomalies)
	}
	anomaly := result.Anomalies[0]
	if anomaly.Type != "massive_data_transfer" || anomaly.Severity != "critical" {
		t.Fatalf("unexpected anomaly: %+v", anomaly)
	}
	if result.RiskScore != 50 || result.RiskLevel != "HIGH" {
		t.Fatalf("expected risk 50 HIGH, got %d %s", result.RiskScore, result.RiskLevel)
	}
}

func TestAnalyzeTransferExternalExfiltration(t *testing.T) {
	a := NewAnalyzer(Config{})
	a.AnalyzeTransfer("bob", 55*mib, "192.168.0.2")
	a.AnalyzeTransfer("bob", 65*mib, "192.168.0.2")

	// In-family size, so only the destination check fires.
	result := a.AnalyzeTransfer("bob", 60*mib, "external-backup.example.com")
	if len(result.Anomalies) != 1 {
		t.Fatalf("expected 1 anomaly, got %+v", result.Anomalies)
	}
	if result.Anomalies[0].Type != "external_exfiltration_risk" {
		t.Fatalf("unexpected anomaly: %+v", result.Anomalies[0])
	}
	if result.RiskScore != 45 {
		t.Fatalf("expected risk 45, got %d", result.RiskScore)
	}
}

func TestAnalyzeTransferInternalLargeIsQuietOnDestination(t *testing.T) {
	a := NewAnalyzer(Config{})
	a.AnalyzeTransfer("bob", 55*mib, "192.168.0.2")
	a.AnalyzeTransfer("bob", 65*mib, "192.168.0.2")

	result := a.AnalyzeTransfer("bob", 60*mib, "192.168.0.3")
	if result.IsAnomalous {
		t.Fatalf("internal in-family transfer should be quiet: %+v", result.Anomalies)
	}
}

func TestAnalyzeTransferStacksAnomalies(t *testing.T) {
	a := NewAnalyzer(Config{})
	for i := 0; i < 5; i++ {
		a.AnalyzeTransfer("bob", 1*mib, "192.168.0.2")
		a.AnalyzeTransfer("bob", 2*mib, "192.168.0.2")
	}

	result := a.AnalyzeTransfer("bob", 200*mib, "external-share")
	if len(result.Anomalies) != 2 {
		t.Fatalf("expected both checks to fire, got %+v", result.Anomalies)
	}
	if result.RiskScore != 95 || result.RiskLevel != "CRITICAL" {
		t.Fatalf("expected risk 95 CRITICAL, got %d %s", result.RiskScore, result.RiskLevel)
	}
}

func TestAnalyzeResourceAccess(t *testing.T) {
	a := NewAnalyzer(Config{})
	for i := 0; i < 21; i++ {
		a.AnalyzeResourceAccess("carol", "/docs/handbook")
	}

	sensitive := a.AnalyzeResourceAccess("carol", "/admin/panel")
	if len(sensitive.Anomalies) != 1 || sensitive.Anomalies[0].Type != "new_sensitive_resource_access" {
		t.Fatalf("expected sensitive anomaly, got %+v", sensitive.Anomalies)
	}
	if sensitive.RiskScore != 40 {
		t.Fatalf("expected risk 40, got %d", sensitive.RiskScore)
	}

	ordinary := a.AnalyzeResourceAccess("carol", "/docs/other")
	if len(ordinary.Anomalies) != 1 || ordinary.Anomalies[0].Type != "new_resource_access" {
		t.Fatalf("expected ordinary anomaly, got %+v", ordinary.Anomalies)
	}
	if ordinary.RiskScore != 10 || ordinary.RiskLevel != "LOW" {
		t.Fatalf("expected risk 10 LOW, got %d %s", ordinary.RiskScore, ordinary.RiskLevel)
	}
}

func TestAnalyzeResourceAccessRequiresBaseline(t *testing.T) {
	a := NewAnalyzer(Config{})

	result := a.AnalyzeResourceAccess("carol", "/admin/panel")
	if result.IsAnomalous {
		t.Fatalf("first events should build the baseline quietly: %+v", result.Anomalies)
	}
}

func TestAnalyzeEventDispatch(t *testing.T) {
	a := NewAnalyzer(Config{})

	if got := a.AnalyzeEvent(&models.ScoredEvent{EventType: "login"}); got != nil {
		t.Fatalf("missing entity should return nil")
	}
	if got := a.AnalyzeEvent(&models.ScoredEvent{EntityID: "dave", EventType: "port_scan"}); got != nil {
		t.Fatalf("unknown event type should return nil")
	}

	got := a.AnalyzeEvent(&models.ScoredEvent{
		EntityID:  "dave",
		EventType: "login",
		SourceIP:  "192.168.1.4",
		Timestamp: baselineTime,
	})
	if got == nil || got.EventType != "login" {
		t.Fatalf("login event should dispatch to the login check: %+v", got)
	}
}

func TestSummaryAggregatesRecentAnomalies(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)
	seedLogins(a, "bob", 15)

	night := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	a.AnalyzeLogin("alice", night, "192.168.1.10")
	a.AnalyzeLogin("alice", night.Add(time.Hour), "192.168.1.10")
	a.AnalyzeLogin("bob", night, "192.168.1.10")

	summary := a.Summary()
	if summary.TotalAnomalies != 3 {
		t.Fatalf("expected 3 anomalies, got %d", summary.TotalAnomalies)
	}
	if summary.ByType["unusual_login_time"] != 3 {
		t.Fatalf("unexpected by-type counts: %v", summary.ByType)
	}
	if summary.BySeverity["high"] != 3 {
		t.Fatalf("unexpected by-severity counts: %v", summary.BySeverity)
	}
	if summary.ByEntity["alice"] != 2 || summary.ByEntity["bob"] != 1 {
		t.Fatalf("unexpected by-entity counts: %v", summary.ByEntity)
	}
	if len(summary.TopEntities) != 2 || summary.TopEntities[0].EntityID != "alice" {
		t.Fatalf("unexpected top entities: %+v", summary.TopEntities)
	}
}

func TestEntityRiskScore(t *testing.T) {
	a := NewAnalyzer(Config{})
	seedLogins(a, "alice", 15)

	if got := a.EntityRiskScore("alice"); got != 0 {
		t.Fatalf("no anomalies should score 0, got %d", got)
	}

	night := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)
	a.AnalyzeLogin("alice", night, "192.168.1.10")       // 40
	a.AnalyzeLogin("alice", night, "10.9.9.9")           // 40 + 30 = 70
	if got := a.EntityRiskScore("alice"); got != 65 {
		// avg(40,70)=55 plus frequency boost 2*5
		t.Fatalf("expected 65, got %d", got)
	}
}

func TestEntityRiskScoreCapped(t *testing.T) {
	a := NewAnalyzer(Config{})
	for i := 0; i < 10; i++ {
		a.AnalyzeTransfer("mallory", 500*mib, "external-drop")
	}

	if got := a.EntityRiskScore("mallory"); got > 100 {
		t.Fatalf("score must be capped at 100, got %d", got)
	}
}

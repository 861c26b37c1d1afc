package alertgate

import (
	"testing"
	"time"

	"riskgate/pkg/models"
)

func score(v float64) *float64 { return &v }

func blockEvent() *models.ScoredEvent {
	return &models.ScoredEvent{
		AttackType: "Brute Force",
		SourceIP:   "10.0.0.5",
		TargetHost: "db-server-01",
		RiskScore:  score(85),
	}
}

func newTestGate(t0 time.Time) (*Gate, *time.Time) {
	clock := t0
	gate := NewGate(Config{AlertThreshold: 70, Cooldown: 60 * time.Second}, nil)
	gate.now = func() time.Time { return clock }
	return gate, &clock
}

func TestGateCooldownSuppressesRepeats(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gate, clock := newTestGate(t0)

	event := blockEvent()
	assessment := models.RiskAssessment{RiskScore: 85, AccessDecision: models.DecisionBlock, Severity: models.SeverityCritical}

	if !gate.ShouldAlert(event, assessment) {
		t.Fatalf("first alert should fire")
	}

	*clock = t0.Add(30 * time.Second)
	if gate.ShouldAlert(event, assessment) {
		t.Fatalf("alert inside cooldown window should be suppressed")
	}

	*clock = t0.Add(61 * time.Second)
	if !gate.ShouldAlert(event, assessment) {
		t.Fatalf("alert after cooldown expiry should fire")
	}
}

func TestGateSuppressedAlertDoesNotRefreshCooldown(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gate, clock := newTestGate(t0)

	event := blockEvent()
	assessment := models.RiskAssessment{RiskScore: 85, AccessDecision: models.DecisionBlock, Severity: models.SeverityCritical}

	if !gate.ShouldAlert(event, assessment) {
		t.Fatalf("first alert should fire")
	}

	*clock = t0.Add(30 * time.Second)
	if gate.ShouldAlert(event, assessment) {
		t.Fatalf("alert inside cooldown window should be suppressed")
	}

	// 70s after the fired alert but only 40s after the suppressed one.
	*clock = t0.Add(70 * time.Second)
	if !gate.ShouldAlert(event, assessment) {
		t.Fatalf("suppressed attempt must not extend the cooldown window")
	}
}

func TestGateDistinctKeysDoNotInterfere(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gate, _ := newTestGate(t0)

	assessment := models.RiskAssessment{RiskScore: 85, AccessDecision: models.DecisionBlock, Severity: models.SeverityCritical}

	first := blockEvent()
	if !gate.ShouldAlert(first, assessment) {
		t.Fatalf("first alert should fire")
	}

	otherIP := blockEvent()
	otherIP.SourceIP = "10.0.0.6"
	if !gate.ShouldAlert(otherIP, assessment) {
		t.Fatalf("different source IP has its own cooldown bucket")
	}

	otherAttack := blockEvent()
	otherAttack.AttackType = "SQL Injection"
	if !gate.ShouldAlert(otherAttack, assessment) {
		t.Fatalf("different attack type has its own cooldown bucket")
	}
}

func TestGateIneligibleEventDoesNotStamp(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gate, clock := newTestGate(t0)

	event := blockEvent()
	event.RiskScore = score(40)
	low := models.RiskAssessment{RiskScore: 40, AccessDecision: models.DecisionRestrict, Severity: models.SeverityMedium}

	if gate.ShouldAlert(event, low) {
		t.Fatalf("RESTRICT below threshold should not alert")
	}

	// An ineligible check must not have started a cooldown.
	*clock = t0.Add(1 * time.Second)
	high := models.RiskAssessment{RiskScore: 85, AccessDecision: models.DecisionBlock, Severity: models.SeverityCritical}
	event.RiskScore = score(85)
	if !gate.ShouldAlert(event, high) {
		t.Fatalf("eligible alert should fire immediately after an ineligible check")
	}
}

func TestGateBlockDecisionEligibleBelowThreshold(t *testing.T) {
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	gate, _ := newTestGate(t0)

	// Custom policy could block below the alert threshold; BLOCK alone
	// makes the event eligible.
	event := blockEvent()
	event.RiskScore = score(65)
	assessment := models.RiskAssessment{RiskScore: 65, AccessDecision: models.DecisionBlock, Severity: models.SeverityHigh}

	if !gate.ShouldAlert(event, assessment) {
		t.Fatalf("BLOCK decision should be alert-eligible regardless of score")
	}
}

func TestMemoryStoreAcquire(t *testing.T) {
	store := NewMemoryStore()
	t0 := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	ok, err := store.Acquire("k", t0, time.Minute)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	ok, err = store.Acquire("k", t0.Add(59*time.Second), time.Minute)
	if err != nil || ok {
		t.Fatalf("acquire inside window: ok=%v err=%v", ok, err)
	}
	ok, err = store.Acquire("k", t0.Add(time.Minute), time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquire at window edge: ok=%v err=%v", ok, err)
	}
}

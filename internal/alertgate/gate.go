package alertgate

import (
	"sync"
	"time"

	"riskgate/internal/logger"
	"riskgate/pkg/models"
)

// CooldownStore records the last alert time per event key. Acquire must be
// atomic: in one step it reports whether the key is outside its cooldown
// window and, if so, stamps it. A suppressed acquire must not refresh the
// stamp.
type CooldownStore interface {
	Acquire(key string, now time.Time, cooldown time.Duration) (bool, error)
	Close() error
}

// MemoryStore keeps cooldown stamps in process memory. Keys are never
// evicted; the map lives for the process lifetime.
type MemoryStore struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewMemoryStore creates an empty in-process cooldown store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{last: make(map[string]time.Time)}
}

// Acquire implements CooldownStore.
func (s *MemoryStore) Acquire(key string, now time.Time, cooldown time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.last[key]; ok && now.Sub(t) < cooldown {
		return false, nil
	}
	s.last[key] = now
	return true, nil
}

// Close implements CooldownStore.
func (s *MemoryStore) Close() error {
	return nil
}

// Config controls alert gating.
type Config struct {
	AlertThreshold float64
	Cooldown       time.Duration
}

// Gate decides whether a qualifying assessment should actually fire a
// notification. Gating governs dispatch only; the risk assessment itself is
// always returned and persisted by the caller regardless of the outcome.
type Gate struct {
	cfg   Config
	store CooldownStore
	now   func() time.Time
}

// NewGate creates a gate. A nil store defaults to an in-process one.
func NewGate(cfg Config, store CooldownStore) *Gate {
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = 70
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gate{
		cfg:   cfg,
		store: store,
		now:   time.Now,
	}
}

// ShouldAlert reports whether the event should fire a notification. An
// event is alert-eligible iff its decision is BLOCK or its risk score is at
// or above the alert threshold. A true result stamps the cooldown key as a
// side effect of the check itself.
func (g *Gate) ShouldAlert(event *models.ScoredEvent, assessment models.RiskAssessment) bool {
	if assessment.AccessDecision != models.DecisionBlock && assessment.RiskScore < g.cfg.AlertThreshold {
		return false
	}

	key := event.CooldownKey()
	ok, err := g.store.Acquire(key, g.now(), g.cfg.Cooldown)
	if err != nil {
		// A store outage must not silence alerting.
		logger.Warnf("Cooldown store error for %s, failing open: %v", key, err)
		return true
	}
	return ok
}

// Close releases store resources.
func (g *Gate) Close() error {
	return g.store.Close()
}

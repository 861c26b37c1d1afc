// Package behavior detects insider-threat-style deviations by comparing
// each event against the entity's learned baseline. Baselines drift by
// design: absorbing every observation bounds how long a sustained pattern
// stays flagged as anomalous.
package behavior

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"riskgate/pkg/models"
)

var sensitivePathPatterns = []string{
	"/admin", "/secrets", "/passwords", "/keys", "/config", "/hr", "/finance",
}

// Config controls baseline thresholds for the analyzer.
type Config struct {
	NewIPBaseline       int // events before new-IP checks apply
	NewResourceBaseline int // events before new-resource checks apply
	SummaryWindow       int // anomalies considered by Summary
	EntityWindow        int // anomalies considered by EntityRiskScore
}

// Analyzer owns all behavior profiles and the rolling anomaly log. A single
// lock serializes all checks, so updates to one entity apply in submission
// order.
type Analyzer struct {
	mu         sync.Mutex
	cfg        Config
	profiles   map[string]*Profile
	anomalyLog []*models.BehaviorAssessment
	now        func() time.Time
}

// NewAnalyzer creates an analyzer with empty profiles.
func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.NewIPBaseline <= 0 {
		cfg.NewIPBaseline = 10
	}
	if cfg.NewResourceBaseline <= 0 {
		cfg.NewResourceBaseline = 20
	}
	if cfg.SummaryWindow <= 0 {
		cfg.SummaryWindow = 50
	}
	if cfg.EntityWindow <= 0 {
		cfg.EntityWindow = 100
	}
	return &Analyzer{
		cfg:      cfg,
		profiles: make(map[string]*Profile),
		now:      time.Now,
	}
}

func (a *Analyzer) profile(entityID string) *Profile {
	p := a.profiles[entityID]
	if p == nil {
		p = newProfile(entityID, a.now())
		a.profiles[entityID] = p
	}
	return p
}

// AnalyzeLogin checks one login event and then folds it into the baseline.
func (a *Analyzer) AnalyzeLogin(entityID string, ts time.Time, sourceIP string) *models.BehaviorAssessment {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.profile(entityID)
	var anomalies []models.Anomaly
	risk := 0

	normalHours := p.NormalLoginHours()
	firstHour, lastHour := 9, 17
	if len(normalHours) > 0 {
		firstHour, lastHour = normalHours[0], normalHours[len(normalHours)-1]
	}
	hour := ts.Hour()
	if !containsInt(normalHours, hour) {
		if hour < 6 || hour > 22 {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "unusual_login_time",
				Severity:    "high",
				Description: fmt.Sprintf("Login at %d:00 - outside normal hours (%d:00-%d:00)", hour, firstHour, lastHour),
				Score:       40,
			})
			risk += 40
		} else {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "unusual_login_time",
				Severity:    "medium",
				Description: fmt.Sprintf("Login at %d:00 - slightly unusual", hour),
				Score:       20,
			})
			risk += 20
		}
	}

	// The weekend share is measured against all events for the entity,
	// not just weekend-day events.
	wd := ts.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		if float64(p.LoginDays[wd]) < float64(p.TotalEvents)*0.05 {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "weekend_login",
				Severity:    "medium",
				Description: "Weekend login detected - user rarely logs in on weekends",
				Score:       25,
			})
			risk += 25
		}
	}

	if _, seen := p.SourceIPs[sourceIP]; !seen && p.TotalEvents > a.cfg.NewIPBaseline {
		anomalies = append(anomalies, models.Anomaly{
			Type:        "new_source_ip",
			Severity:    "medium",
			Description: fmt.Sprintf("Login from new IP address: %s", sourceIP),
			Score:       30,
		})
		risk += 30
	}

	p.addLogin(ts, sourceIP, a.now())

	result := a.finish(entityID, "login", anomalies, risk)
	result.Timestamp = ts
	result.SourceIP = sourceIP
	return result
}

// AnalyzeTransfer checks one data transfer and then folds it into the
// baseline. The z-score and external-destination checks are independent and
// additive.
func (a *Analyzer) AnalyzeTransfer(entityID string, sizeBytes int64, destination string) *models.BehaviorAssessment {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.profile(entityID)
	var anomalies []models.Anomaly
	risk := 0

	avg := p.AverageTransferSize()
	stdDev := p.TransferStdDev()
	if stdDev > 0 {
		z := (float64(sizeBytes) - avg) / stdDev
		if z > 5 {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "massive_data_transfer",
				Severity:    "critical",
				Description: fmt.Sprintf("Transfer %.1fMB is %.1f std devs above normal (%.1fMB)", mb(sizeBytes), z, avg/(1024*1024)),
				Score:       50,
			})
			risk += 50
		} else if z > 3 {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "large_data_transfer",
				Severity:    "high",
				Description: fmt.Sprintf("Transfer %.1fMB is %.1f std devs above normal", mb(sizeBytes), z),
				Score:       35,
			})
			risk += 35
		}
	}

	if strings.Contains(strings.ToLower(destination), "external") || !strings.HasPrefix(destination, "192.168") {
		if sizeBytes >= 50*1024*1024 {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "external_exfiltration_risk",
				Severity:    "critical",
				Description: fmt.Sprintf("Large transfer (%.1fMB) to external destination", mb(sizeBytes)),
				Score:       45,
			})
			risk += 45
		}
	}

	p.addTransfer(sizeBytes, a.now())

	result := a.finish(entityID, "data_transfer", anomalies, risk)
	result.SizeBytes = sizeBytes
	result.Destination = destination
	return result
}

// AnalyzeResourceAccess checks one resource access and then folds it into
// the baseline. First-time accesses are only flagged once enough history
// exists.
func (a *Analyzer) AnalyzeResourceAccess(entityID, resource string) *models.BehaviorAssessment {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := a.profile(entityID)
	var anomalies []models.Anomaly
	risk := 0

	if _, seen := p.AccessedResources[resource]; !seen && p.TotalEvents > a.cfg.NewResourceBaseline {
		if isSensitiveResource(resource) {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "new_sensitive_resource_access",
				Severity:    "high",
				Description: fmt.Sprintf("First-time access to sensitive resource: %s", resource),
				Score:       40,
			})
			risk += 40
		} else {
			anomalies = append(anomalies, models.Anomaly{
				Type:        "new_resource_access",
				Severity:    "low",
				Description: fmt.Sprintf("First-time access to resource: %s", resource),
				Score:       10,
			})
			risk += 10
		}
	}

	p.addResourceAccess(resource, a.now())

	result := a.finish(entityID, "resource_access", anomalies, risk)
	result.Resource = resource
	return result
}

// AnalyzeEvent dispatches a telemetry event to the matching check. Events
// without an entity or with an unrecognized type return nil.
func (a *Analyzer) AnalyzeEvent(event *models.ScoredEvent) *models.BehaviorAssessment {
	if event == nil || event.EntityID == "" {
		return nil
	}
	switch event.EventType {
	case "login":
		return a.AnalyzeLogin(event.EntityID, event.Timestamp, event.SourceIP)
	case "data_transfer":
		return a.AnalyzeTransfer(event.EntityID, event.BytesOut, event.TargetHost)
	case "resource_access":
		return a.AnalyzeResourceAccess(event.EntityID, event.Resource)
	default:
		return nil
	}
}

// finish caps the score, classifies it, and appends anomalous results to
// the log. Caller must hold the lock.
func (a *Analyzer) finish(entityID, eventType string, anomalies []models.Anomaly, risk int) *models.BehaviorAssessment {
	if risk > 100 {
		risk = 100
	}
	result := &models.BehaviorAssessment{
		EntityID:    entityID,
		EventType:   eventType,
		Anomalies:   anomalies,
		RiskScore:   risk,
		RiskLevel:   riskLevel(risk),
		IsAnomalous: len(anomalies) > 0,
	}
	if result.IsAnomalous {
		a.anomalyLog = append(a.anomalyLog, result)
	}
	return result
}

// Summary aggregates the most recent anomalies by type, entity and
// severity.
func (a *Analyzer) Summary() models.AnomalySummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	recent := a.anomalyLog
	if len(recent) > a.cfg.SummaryWindow {
		recent = recent[len(recent)-a.cfg.SummaryWindow:]
	}

	summary := models.AnomalySummary{
		TotalAnomalies: len(recent),
		ByType:         make(map[string]int),
		ByEntity:       make(map[string]int),
		BySeverity:     make(map[string]int),
	}
	for _, assessment := range recent {
		for _, anomaly := range assessment.Anomalies {
			summary.ByType[anomaly.Type]++
			summary.BySeverity[anomaly.Severity]++
		}
		summary.ByEntity[assessment.EntityID]++
	}

	entities := make([]models.EntityCount, 0, len(summary.ByEntity))
	for id, count := range summary.ByEntity {
		entities = append(entities, models.EntityCount{EntityID: id, Count: count})
	}
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Count != entities[j].Count {
			return entities[i].Count > entities[j].Count
		}
		return entities[i].EntityID < entities[j].EntityID
	})
	if len(entities) > 5 {
		entities = entities[:5]
	}
	summary.TopEntities = entities
	return summary
}

// EntityRiskScore derives an overall score for one entity from its recent
// anomalies: the average recorded score plus a frequency boost, capped at
// 100.
func (a *Analyzer) EntityRiskScore(entityID string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	window := a.anomalyLog
	if len(window) > a.cfg.EntityWindow {
		window = window[len(window)-a.cfg.EntityWindow:]
	}

	var recent []*models.BehaviorAssessment
	for _, assessment := range window {
		if assessment.EntityID == entityID {
			recent = append(recent, assessment)
		}
	}
	if len(recent) == 0 {
		return 0
	}

	sum := 0
	for _, assessment := range recent {
		sum += assessment.RiskScore
	}
	avg := sum / len(recent)

	boost := len(recent) * 5
	if boost > 30 {
		boost = 30
	}

	score := avg + boost
	if score > 100 {
		score = 100
	}
	return score
}

func riskLevel(score int) string {
	switch {
	case score >= 70:
		return "CRITICAL"
	case score >= 50:
		return "HIGH"
	case score >= 30:
		return "MEDIUM"
	case score >= 10:
		return "LOW"
	default:
		return "NORMAL"
	}
}

func isSensitiveResource(resource string) bool {
	lower := strings.ToLower(resource)
	for _, pattern := range sensitivePathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func mb(bytes int64) float64 {
	return float64(bytes) / (1024 * 1024)
}

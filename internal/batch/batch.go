// Package batch scores a bounded set of telemetry events offline. The
// whole file is one normalization window, matching how the daemon treats a
// flush batch.
package batch

import (
	"bufio"
	"fmt"
	"os"

	"riskgate/internal/engine"
	"riskgate/internal/logger"
	"riskgate/internal/normalize"
	"riskgate/internal/notify"
	"riskgate/internal/policy"
	"riskgate/internal/transform/telemetry"
	"riskgate/pkg/models"
)

// LoadEventsJSONL reads telemetry events from a JSON lines file. Malformed
// lines are skipped with a warning.
func LoadEventsJSONL(path string) ([]*models.ScoredEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var events []*models.ScoredEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 8*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := telemetry.Parse(line)
		if err != nil {
			logger.Warnf("Skipping malformed line %d: %v", lineNo, err)
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return events, nil
}

// Score normalizes the batch and produces one decision record per valid
// event. Events that fail validation are dropped with a warning.
func Score(events []*models.ScoredEvent, thresholds policy.Thresholds, bands policy.SeverityBands) []*models.DecisionRecord {
	var pending []*models.ScoredEvent
	var raw []float64
	for _, event := range events {
		if event.RiskScore == nil && event.AnomalyScore != nil {
			pending = append(pending, event)
			raw = append(raw, *event.AnomalyScore)
		}
	}
	if len(pending) > 0 {
		normalized := normalize.Normalize(raw)
		for i, event := range pending {
			v := normalized[i]
			event.RiskScore = &v
		}
	}

	eng := engine.New(engine.Config{Thresholds: thresholds, Bands: bands}, nil, nil)

	records := make([]*models.DecisionRecord, 0, len(events))
	for _, event := range events {
		assessment, err := eng.Process(event)
		if err != nil {
			logger.Warnf("Skipping invalid event: %v", err)
			continue
		}
		records = append(records, &models.DecisionRecord{
			Event:          event,
			RiskScore:      assessment.RiskScore,
			AccessDecision: assessment.AccessDecision,
			Severity:       assessment.Severity,
		})
	}
	return records
}

// Summarize rolls a scored batch up into summary counters.
func Summarize(records []*models.DecisionRecord) notify.Summary {
	var summary notify.Summary
	var riskSum float64

	for _, record := range records {
		summary.TotalEvents++
		riskSum += record.RiskScore
		switch record.AccessDecision {
		case models.DecisionBlock:
			summary.Blocked++
		case models.DecisionRestrict:
			summary.Restricted++
		case models.DecisionAllow:
			summary.Allowed++
		}
		if record.Severity == models.SeverityCritical {
			summary.Critical++
		}
	}
	if summary.TotalEvents > 0 {
		summary.AvgRisk = riskSum / float64(summary.TotalEvents)
	}
	return summary
}

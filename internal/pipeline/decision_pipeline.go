package pipeline

import (
	"context"
	"sync"
	"time"

	"riskgate/internal/behavior"
	"riskgate/internal/engine"
	"riskgate/internal/logger"
	"riskgate/internal/metrics"
	"riskgate/internal/normalize"
	"riskgate/internal/notify"
	"riskgate/internal/transform/telemetry"
	"riskgate/pkg/models"
)

// DecisionPipeline consumes scored telemetry, batch-normalizes it, and
// writes access decisions. Gate checks run synchronously on the scoring
// path so cooldown stamping stays ordered; the notification sends they
// trigger run on a separate goroutine.
type DecisionPipeline struct {
	consumer        Consumer
	engine          *engine.Engine
	analyzer        *behavior.Analyzer
	router          *notify.Router
	writer          DecisionWriter
	anomalyWriter   AnomalyWriter
	workers         int
	batchSize       int
	flushInterval   time.Duration
	summaryInterval time.Duration
	now             func() time.Time

	blockedIPs map[string]struct{}

	statsMu sync.Mutex
	stats   notify.Summary
}

type notifyItem struct {
	event      *models.ScoredEvent
	assessment models.RiskAssessment
}

// NewDecisionPipeline creates a pipeline. Analyzer, router and
// anomalyWriter are optional.
func NewDecisionPipeline(consumer Consumer, eng *engine.Engine, analyzer *behavior.Analyzer, router *notify.Router, writer DecisionWriter, anomalyWriter AnomalyWriter, workers, batchSize int, flushInterval, summaryInterval time.Duration) *DecisionPipeline {
	return &DecisionPipeline{
		consumer:        consumer,
		engine:          eng,
		analyzer:        analyzer,
		router:          router,
		writer:          writer,
		anomalyWriter:   anomalyWriter,
		workers:         workers,
		batchSize:       batchSize,
		flushInterval:   flushInterval,
		summaryInterval: summaryInterval,
		now:             time.Now,
		blockedIPs:      make(map[string]struct{}),
	}
}

// Run starts the pipeline loop.
func (p *DecisionPipeline) Run(ctx context.Context) error {
	logger.Infof("Decision pipeline started")

	if p.workers <= 0 {
		p.workers = 4
	}
	if p.batchSize <= 0 {
		p.batchSize = 100
	}
	if p.flushInterval <= 0 {
		p.flushInterval = 2 * time.Second
	}

	msgCh := make(chan []byte, p.workers*4)
	eventCh := make(chan *models.ScoredEvent, p.workers*4)
	notifyCh := make(chan notifyItem, 256)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.readLoop(ctx, msgCh)
		close(msgCh)
	}()

	var parseWg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		parseWg.Add(1)
		go func() {
			defer parseWg.Done()
			p.parseLoop(msgCh, eventCh)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		parseWg.Wait()
		close(eventCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.scoreLoop(ctx, eventCh, notifyCh)
		close(notifyCh)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		p.notifyLoop(ctx, notifyCh)
	}()

	if p.router != nil && p.summaryInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.summaryLoop(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// Close releases pipeline resources.
func (p *DecisionPipeline) Close() error {
	if p.anomalyWriter != nil {
		if err := p.anomalyWriter.Close(); err != nil {
			logger.Errorf("Failed to close anomaly writer: %v", err)
		}
	}
	if p.writer != nil {
		if err := p.writer.Close(); err != nil {
			logger.Errorf("Failed to close decision writer: %v", err)
		}
	}
	if p.consumer != nil {
		return p.consumer.Close()
	}
	return nil
}

func (p *DecisionPipeline) readLoop(ctx context.Context, out chan<- []byte) {
	for {
		payload, err := p.consumer.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Errorf("Failed to pop telemetry message: %v", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if payload == nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		select {
		case out <- payload:
		case <-ctx.Done():
			return
		}
	}
}

func (p *DecisionPipeline) parseLoop(in <-chan []byte, out chan<- *models.ScoredEvent) {
	for payload := range in {
		event, err := telemetry.Parse(payload)
		if err != nil {
			metrics.ParseFailures.Inc()
			logger.Warnf("Failed to parse telemetry payload: %v", err)
			continue
		}
		out <- event
	}
}

// scoreLoop accumulates events and processes them as a batch so min-max
// normalization sees a full window of raw scores.
func (p *DecisionPipeline) scoreLoop(ctx context.Context, in <-chan *models.ScoredEvent, notifyOut chan<- notifyItem) {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	var batch []*models.ScoredEvent

	flush := func() {
		if len(batch) == 0 {
			return
		}
		records := p.processBatch(batch, notifyOut)
		batch = nil
		if len(records) == 0 {
			return
		}
		for {
			if err := p.writer.WriteDecisions(records); err != nil {
				logger.Errorf("Failed to write decision records: %v", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(1 * time.Second):
				}
				continue
			}
			break
		}
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			// Unblock any parse workers still sending.
			for range in {
			}
			return
		case <-ticker.C:
			flush()
		case event, ok := <-in:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= p.batchSize {
				flush()
			}
		}
	}
}

func (p *DecisionPipeline) processBatch(batch []*models.ScoredEvent, notifyOut chan<- notifyItem) []*models.DecisionRecord {
	// Precomputed risk scores win; only the remainder goes through
	// relative normalization.
	var pending []*models.ScoredEvent
	var raw []float64
	for _, event := range batch {
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

	records := make([]*models.DecisionRecord, 0, len(batch))
	var anomalies []*models.BehaviorAssessment

	for _, event := range batch {
		metrics.EventsProcessed.Inc()
		if event.Timestamp.IsZero() {
			event.Timestamp = p.now().UTC()
		}

		assessment, err := p.engine.Process(event)
		if err != nil {
			metrics.ParseFailures.Inc()
			logger.Warnf("Rejected telemetry event: %v", err)
			continue
		}
		metrics.Decisions.WithLabelValues(string(assessment.AccessDecision)).Inc()

		record := &models.DecisionRecord{
			Event:          event,
			RiskScore:      assessment.RiskScore,
			AccessDecision: assessment.AccessDecision,
			Severity:       assessment.Severity,
		}

		if p.engine.ShouldAlert(event, assessment) {
			record.Alerted = true
			metrics.Alerts.WithLabelValues("fired").Inc()
			select {
			case notifyOut <- notifyItem{event: event, assessment: assessment}:
			default:
				logger.Warnf("Notification queue full, dropping alert for %s", event.CooldownKey())
			}
		} else if assessment.AccessDecision == models.DecisionBlock || assessment.RiskScore >= 70 {
			metrics.Alerts.WithLabelValues("suppressed").Inc()
		}

		if assessment.AccessDecision == models.DecisionBlock && event.SourceIP != "" {
			if _, seen := p.blockedIPs[event.SourceIP]; !seen {
				p.blockedIPs[event.SourceIP] = struct{}{}
				metrics.BlockedIPs.Set(float64(len(p.blockedIPs)))
				logger.Infof("Blocking source IP %s (%s, risk %.2f)", event.SourceIP, event.AttackType, assessment.RiskScore)
			}
		}

		if p.analyzer != nil {
			if result := p.analyzer.AnalyzeEvent(event); result != nil && result.IsAnomalous {
				for _, anomaly := range result.Anomalies {
					metrics.BehaviorAnomalies.WithLabelValues(anomaly.Type).Inc()
				}
				anomalies = append(anomalies, result)
			}
		}

		p.recordStats(assessment)
		records = append(records, record)
	}

	if p.anomalyWriter != nil && len(anomalies) > 0 {
		if err := p.anomalyWriter.WriteAnomalies(anomalies); err != nil {
			logger.Errorf("Failed to write behavior anomalies: %v", err)
		}
	}

	return records
}

func (p *DecisionPipeline) notifyLoop(ctx context.Context, in <-chan notifyItem) {
	for item := range in {
		results := p.engine.Notify(ctx, item.event, item.assessment)
		logger.Debugf("Notification results for %s: %v", item.event.CooldownKey(), results)
	}
}

func (p *DecisionPipeline) recordStats(assessment models.RiskAssessment) {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	p.stats.TotalEvents++
	p.stats.AvgRisk += assessment.RiskScore
	switch assessment.AccessDecision {
	case models.DecisionBlock:
		p.stats.Blocked++
	case models.DecisionRestrict:
		p.stats.Restricted++
	case models.DecisionAllow:
		p.stats.Allowed++
	}
	if assessment.Severity == models.SeverityCritical {
		p.stats.Critical++
	}
}

// snapshotStats returns the running summary and resets the window.
func (p *DecisionPipeline) snapshotStats() notify.Summary {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()

	summary := p.stats
	if summary.TotalEvents > 0 {
		summary.AvgRisk = summary.AvgRisk / float64(summary.TotalEvents)
	}
	p.stats = notify.Summary{}
	return summary
}

func (p *DecisionPipeline) summaryLoop(ctx context.Context) {
	ticker := time.NewTicker(p.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary := p.snapshotStats()
			if summary.TotalEvents == 0 {
				continue
			}
			p.router.SendSummary(ctx, summary)
		}
	}
}

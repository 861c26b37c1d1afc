package pipeline

import "riskgate/pkg/models"

// DecisionWriter persists decision records.
type DecisionWriter interface {
	WriteDecisions(records []*models.DecisionRecord) error
	Close() error
}

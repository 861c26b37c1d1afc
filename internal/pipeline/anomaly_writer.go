package pipeline

import "riskgate/pkg/models"

// AnomalyWriter persists behavior anomaly assessments.
type AnomalyWriter interface {
	WriteAnomalies(assessments []*models.BehaviorAssessment) error
	Close() error
}

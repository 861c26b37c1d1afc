package anomalyjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"riskgate/internal/logger"
	"riskgate/pkg/models"
)

// Writer outputs behavior anomaly assessments to a JSON lines file.
type Writer struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewWriter creates a JSONL writer for behavior anomalies.
func NewWriter(path string) (*Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	logger.Infof("Anomaly JSON writer initialized: %s", path)
	return &Writer{file: f, encoder: json.NewEncoder(f)}, nil
}

// WriteAnomalies writes a batch of behavior assessments.
func (w *Writer) WriteAnomalies(assessments []*models.BehaviorAssessment) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, assessment := range assessments {
		if err := w.encoder.Encode(assessment); err != nil {
			return fmt.Errorf("failed to encode anomaly: %w", err)
		}
	}
	return nil
}

// Close closes the output file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

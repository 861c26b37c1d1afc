package pipeline

import "context"

// Consumer feeds raw telemetry payloads into the pipeline.
type Consumer interface {
	Pop(ctx context.Context) ([]byte, error)
	Close() error
}

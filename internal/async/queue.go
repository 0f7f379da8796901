package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrShuttingDown is returned by Enqueue once shutdown has started; the job
// was not accepted and will not run.
var ErrShuttingDown = errors.New("queue is shutting down")

// Job is the smallest useful unit of pipeline work. TranscriptOverride skips
// retrieval and transcription for deterministic replay.
type Job struct {
	ReportID           uuid.UUID
	TranscriptOverride string
	SubmittedAt        time.Time
	TraceID            string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

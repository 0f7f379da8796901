package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/constants"
	"github.com/sitevoice/fieldreport/internal/entity"
)

// ReportRepository is the keyed record store the pipeline mutates. Not-found
// is signaled distinctly (common.ErrNotFound) from transport failures
// (common.ErrPersistence).
type ReportRepository interface {
	// Create inserts a new record in UPLOADING with a reserved audio key.
	Create(ctx context.Context, siteName, audioKey string) (*entity.Report, error)

	GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error)

	// List returns records ordered by creation time, newest first, optionally
	// windowed by creation date (inclusive).
	List(ctx context.Context, from, to *time.Time) ([]*entity.Report, error)

	// MarkProcessing transitions the record into PROCESSING and clears any
	// previous failure message. Used both for fresh attempts and retries.
	MarkProcessing(ctx context.Context, id uuid.UUID) error

	// FinishSuccess writes transcript, extraction, summary and the READY
	// status as one update.
	FinishSuccess(ctx context.Context, id uuid.UUID, transcript string, extracted *entity.ExtractedData, summary string) error

	// FinishFailure writes the FAILED marker and the diagnostic message,
	// leaving prior content columns untouched.
	FinishFailure(ctx context.Context, id uuid.UUID, message string) error
}

func statusFromDB(s string) constants.ReportStatus {
	return constants.ReportStatus(s)
}

func marshalExtracted(extracted *entity.ExtractedData) ([]byte, error) {
	if extracted == nil {
		return nil, nil
	}
	b, err := json.Marshal(extracted)
	if err != nil {
		return nil, fmt.Errorf("marshal extracted: %w", err)
	}
	return b, nil
}

func unmarshalExtracted(raw []byte) (*entity.ExtractedData, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out entity.ExtractedData
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal extracted: %w", err)
	}
	return &out, nil
}

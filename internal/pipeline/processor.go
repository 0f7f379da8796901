package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sitevoice/fieldreport/constants"
	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/llm"
	"github.com/sitevoice/fieldreport/internal/render"
	"github.com/sitevoice/fieldreport/internal/repository"
	"github.com/sitevoice/fieldreport/internal/storage"
	"github.com/sitevoice/fieldreport/internal/transcribe"
)

// Processor is the report state machine: audio retrieval → transcription →
// structured extraction → validation/normalization → summary rendering, with
// a durable status write at each milestone.
type Processor struct {
	logger      *slog.Logger
	reports     repository.ReportRepository
	audio       storage.AudioFetcher
	transcriber transcribe.Transcriber
	extractor   llm.FieldExtractor
}

func NewProcessor(
	logger *slog.Logger,
	reports repository.ReportRepository,
	audio storage.AudioFetcher,
	transcriber transcribe.Transcriber,
	extractor llm.FieldExtractor,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		logger:      logger,
		reports:     reports,
		audio:       audio,
		transcriber: transcriber,
		extractor:   extractor,
	}
}

// ProcessReport runs the full pipeline for one record. transcriptOverride, if
// non-empty, skips retrieval and transcription (deterministic replay path).
//
// A missing record fails with ErrNotFound and mutates nothing. Any later
// failure marks the record FAILED (best effort) and propagates the original
// error. Re-invocation on a READY record re-runs everything and overwrites:
// retries are explicit re-processing, not no-ops.
func (p *Processor) ProcessReport(ctx context.Context, reportID uuid.UUID, transcriptOverride string) error {
	start := time.Now()

	rep, err := p.reports.GetByID(ctx, reportID)
	if err != nil {
		p.logger.Error("pipeline.load.failed", "report_id", reportID, "err", err)
		return err
	}

	if err := p.reports.MarkProcessing(ctx, reportID); err != nil {
		p.logger.Error("pipeline.mark_processing.failed", "report_id", reportID, "err", err)
		return err
	}

	transcript, err := p.obtainTranscript(ctx, rep.AudioKey, transcriptOverride)
	if err != nil {
		return p.fail(ctx, reportID, err)
	}

	rawContent, err := p.extractor.ExtractFields(ctx, transcript)
	if err != nil {
		p.logger.Error("pipeline.extract.failed", "report_id", reportID, "err", err)
		return p.fail(ctx, reportID, err)
	}

	doc, err := llm.DecodeObjectLenient(rawContent)
	if err != nil {
		p.logger.Error("pipeline.extract.unrecoverable_output", "report_id", reportID, "err", err)
		return p.fail(ctx, reportID, common.Tag(common.ErrExtraction, err))
	}

	if err := llm.ValidateJSONAgainstSchema(llm.BuildReportJSONSchema(), doc); err != nil {
		p.logger.Error("pipeline.validate.failed", "report_id", reportID, "err", err)
		return p.fail(ctx, reportID, common.Tag(common.ErrValidation, err))
	}

	extracted, err := llm.CoerceFields(doc)
	if err != nil {
		p.logger.Error("pipeline.coerce.failed", "report_id", reportID, "err", err)
		return p.fail(ctx, reportID, err)
	}

	summary := render.Summary(render.Header{
		ReportID:   rep.ID.String(),
		SiteName:   rep.SiteName,
		ReportDate: rep.CreatedAt,
	}, extracted, transcript)

	if err := p.reports.FinishSuccess(ctx, reportID, transcript, extracted, summary); err != nil {
		p.logger.Error("pipeline.persist.failed", "report_id", reportID, "err", err)
		return p.fail(ctx, reportID, err)
	}

	p.logger.Info("pipeline.ok",
		"report_id", reportID,
		"transcript_len", len(transcript),
		"work_items", len(extracted.WorkPerformed),
		"deliveries", len(extracted.Deliveries),
		"delays", len(extracted.Delays),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// obtainTranscript returns the override when given, otherwise fetches the
// audio and transcribes it. A transcript that is blank after trimming is a
// transcription failure, never a valid READY outcome.
func (p *Processor) obtainTranscript(ctx context.Context, audioKey, override string) (string, error) {
	transcript := override
	if transcript == "" {
		audio, err := p.audio.Fetch(ctx, audioKey)
		if err != nil {
			p.logger.Error("pipeline.retrieve.failed", "audio_key", audioKey, "err", err)
			return "", err
		}
		mimeType := constants.MimeForAudioKey(audioKey)
		transcript, err = p.transcriber.Transcribe(ctx, audio, mimeType, filepath.Base(audioKey))
		if err != nil {
			p.logger.Error("pipeline.transcribe.failed", "audio_key", audioKey, "err", err)
			return "", err
		}
		p.logger.Info("pipeline.transcribe.ok", "audio_key", audioKey, "mime_type", mimeType, "text_len", len(transcript))
	}
	if strings.TrimSpace(transcript) == "" {
		return "", common.Tagf(common.ErrTranscription, "transcript is empty")
	}
	return transcript, nil
}

// fail writes the FAILED marker best-effort and propagates the original
// error. A failed marker write (e.g. record vanished mid-attempt) is logged
// and swallowed so the pipeline error stays the surfaced one.
func (p *Processor) fail(ctx context.Context, reportID uuid.UUID, cause error) error {
	if err := p.reports.FinishFailure(ctx, reportID, cause.Error()); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			p.logger.Warn("pipeline.fail_write.record_gone", "report_id", reportID, "err", err)
		} else {
			p.logger.Error("pipeline.fail_write.failed", "report_id", reportID, "err", err)
		}
	}
	return cause
}

package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/entity"
)

// PoolConfig controls the pgx connection pool. Lifecycle is owned by the
// process entry point; the repository only borrows the pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// NewPool opens a pgx pool with the given settings and verifies connectivity.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, common.WrapError(err, "parse DSN")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.DialTimeout > 0 {
		pc.ConnConfig.ConnectTimeout = cfg.DialTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, common.WrapError(err, "create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, common.WrapError(err, "ping")
	}
	return pool, nil
}

// HealthCheck pings the pool within the given timeout.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Ping(ctx)
}

type postgresRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewPostgresRepository returns a ReportRepository backed by a pgx pool.
func NewPostgresRepository(pool *pgxpool.Pool, log *slog.Logger) ReportRepository {
	if log == nil {
		log = slog.Default()
	}
	return &postgresRepo{pool: pool, log: log}
}

const pgReportColumns = `id, site_name, audio_key, status, transcript_text, extracted_json, summary_text, error_message, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, siteName, audioKey string) (*entity.Report, error) {
	id := uuid.New()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO reports (id, site_name, audio_key, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+pgReportColumns,
		id.String(), siteName, audioKey, "UPLOADING",
	)
	rep, err := scanPgReport(row)
	if err != nil {
		r.log.Error("report create failed", "audio_key", audioKey, "err", err)
		return nil, common.Tag(common.ErrPersistence, err)
	}
	r.log.Info("report created", "report_id", rep.ID, "audio_key", audioKey)
	return rep, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+pgReportColumns+` FROM reports WHERE id = $1`, id.String())
	rep, err := scanPgReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.Tagf(common.ErrNotFound, "report %s", id)
		}
		return nil, common.Tag(common.ErrPersistence, err)
	}
	return rep, nil
}

func (r *postgresRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.Report, error) {
	q := `SELECT ` + pgReportColumns + ` FROM reports`
	args := make([]any, 0, 2)
	switch {
	case from != nil && to != nil:
		q += ` WHERE created_at >= $1 AND created_at < $2`
		args = append(args, *from, to.AddDate(0, 0, 1))
	case from != nil:
		q += ` WHERE created_at >= $1`
		args = append(args, *from)
	case to != nil:
		q += ` WHERE created_at < $1`
		args = append(args, to.AddDate(0, 0, 1))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, common.Tag(common.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*entity.Report
	for rows.Next() {
		rep, err := scanPgReport(rows)
		if err != nil {
			return nil, common.Tag(common.ErrPersistence, err)
		}
		out = append(out, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, common.Tag(common.ErrPersistence, err)
	}
	return out, nil
}

func (r *postgresRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reports
		SET status = 'PROCESSING', error_message = NULL, updated_at = now()
		WHERE id = $1`, id.String())
	if err != nil {
		return common.Tag(common.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Info("report processing", "report_id", id)
	return nil
}

func (r *postgresRepo) FinishSuccess(ctx context.Context, id uuid.UUID, transcript string, extracted *entity.ExtractedData, summary string) error {
	raw, err := marshalExtracted(extracted)
	if err != nil {
		return common.Tag(common.ErrPersistence, err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE reports
		SET status = 'READY', transcript_text = $2, extracted_json = $3,
		    summary_text = $4, error_message = NULL, updated_at = now()
		WHERE id = $1`, id.String(), transcript, raw, summary)
	if err != nil {
		r.log.Error("report finish(READY) failed", "report_id", id, "err", err)
		return common.Tag(common.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Info("report finished (READY)", "report_id", id)
	return nil
}

func (r *postgresRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reports
		SET status = 'FAILED', error_message = $2, updated_at = now()
		WHERE id = $1`, id.String(), message)
	if err != nil {
		r.log.Error("report finish(FAILED) failed", "report_id", id, "err", err)
		return common.Tag(common.ErrPersistence, err)
	}
	if tag.RowsAffected() == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Warn("report finished (FAILED)", "report_id", id, "error", message)
	return nil
}

type pgScanner interface {
	Scan(dest ...any) error
}

func scanPgReport(s pgScanner) (*entity.Report, error) {
	var (
		rep       entity.Report
		idStr     string
		status    string
		extracted []byte
	)
	if err := s.Scan(&idStr, &rep.SiteName, &rep.AudioKey, &status, &rep.TranscriptText,
		&extracted, &rep.SummaryText, &rep.ErrorMessage, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	rep.ID = id
	rep.Status = statusFromDB(status)
	ex, err := unmarshalExtracted(extracted)
	if err != nil {
		return nil, err
	}
	rep.Extracted = ex
	return &rep, nil
}

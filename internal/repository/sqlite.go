package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/sitevoice/fieldreport/internal/common"
	"github.com/sitevoice/fieldreport/internal/entity"
)

// OpenSQLite opens (or creates) an embedded SQLite store and applies the
// reports schema. Use ":memory:" for throwaway local runs and tests.
func OpenSQLite(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite")
	}
	// modernc sqlite is not safe for concurrent writers on one connection set
	// beyond what SQLite itself serializes; a single open handle is enough here.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, common.WrapError(err, "apply schema")
	}
	return db, nil
}

// sqliteTimeFormat is a fixed-width RFC3339 layout. Timestamps are compared
// lexicographically in SQL, and RFC3339Nano trims trailing fractional zeros,
// which breaks that ordering ('.' sorts before 'Z'). Every column write and
// every query bound must use this layout.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	id              TEXT PRIMARY KEY,
	site_name       TEXT NOT NULL DEFAULT '',
	audio_key       TEXT NOT NULL,
	status          TEXT NOT NULL,
	transcript_text TEXT NOT NULL DEFAULT '',
	extracted_json  TEXT,
	summary_text    TEXT NOT NULL DEFAULT '',
	error_message   TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports (created_at);
`

type sqliteRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLiteRepository returns a ReportRepository backed by an embedded SQLite
// database, for single-binary deployments and local runs.
func NewSQLiteRepository(db *sql.DB, log *slog.Logger) ReportRepository {
	if log == nil {
		log = slog.Default()
	}
	return &sqliteRepo{db: db, log: log}
}

const sqliteReportColumns = `id, site_name, audio_key, status, transcript_text, extracted_json, summary_text, error_message, created_at, updated_at`

func (r *sqliteRepo) Create(ctx context.Context, siteName, audioKey string) (*entity.Report, error) {
	id := uuid.New()
	now := time.Now().UTC().Format(sqliteTimeFormat)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, site_name, audio_key, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id.String(), siteName, audioKey, "UPLOADING", now, now)
	if err != nil {
		r.log.Error("report create failed", "audio_key", audioKey, "err", err)
		return nil, common.Tag(common.ErrPersistence, err)
	}
	r.log.Info("report created", "report_id", id, "audio_key", audioKey)
	return r.GetByID(ctx, id)
}

func (r *sqliteRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteReportColumns+` FROM reports WHERE id = ?`, id.String())
	rep, err := scanSQLiteReport(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.Tagf(common.ErrNotFound, "report %s", id)
		}
		return nil, common.Tag(common.ErrPersistence, err)
	}
	return rep, nil
}

func (r *sqliteRepo) List(ctx context.Context, from, to *time.Time) ([]*entity.Report, error) {
	q := `SELECT ` + sqliteReportColumns + ` FROM reports`
	args := make([]any, 0, 2)
	switch {
	case from != nil && to != nil:
		q += ` WHERE created_at >= ? AND created_at < ?`
		args = append(args, from.UTC().Format(sqliteTimeFormat), to.AddDate(0, 0, 1).UTC().Format(sqliteTimeFormat))
	case from != nil:
		q += ` WHERE created_at >= ?`
		args = append(args, from.UTC().Format(sqliteTimeFormat))
	case to != nil:
		q += ` WHERE created_at < ?`
		args = append(args, to.AddDate(0, 0, 1).UTC().Format(sqliteTimeFormat))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, common.Tag(common.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*entity.Report
	for rows.Next() {
		rep, err := scanSQLiteReport(rows)
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

func (r *sqliteRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'PROCESSING', error_message = NULL, updated_at = ?
		WHERE id = ?`, time.Now().UTC().Format(sqliteTimeFormat), id.String())
	if err != nil {
		return common.Tag(common.ErrPersistence, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Info("report processing", "report_id", id)
	return nil
}

func (r *sqliteRepo) FinishSuccess(ctx context.Context, id uuid.UUID, transcript string, extracted *entity.ExtractedData, summary string) error {
	raw, err := marshalExtracted(extracted)
	if err != nil {
		return common.Tag(common.ErrPersistence, err)
	}
	var rawArg any
	if raw != nil {
		rawArg = string(raw)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports
		SET status = 'READY', transcript_text = ?, extracted_json = ?,
		    summary_text = ?, error_message = NULL, updated_at = ?
		WHERE id = ?`,
		transcript, rawArg, summary, time.Now().UTC().Format(sqliteTimeFormat), id.String())
	if err != nil {
		r.log.Error("report finish(READY) failed", "report_id", id, "err", err)
		return common.Tag(common.ErrPersistence, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Info("report finished (READY)", "report_id", id)
	return nil
}

func (r *sqliteRepo) FinishFailure(ctx context.Context, id uuid.UUID, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE reports SET status = 'FAILED', error_message = ?, updated_at = ?
		WHERE id = ?`, message, time.Now().UTC().Format(sqliteTimeFormat), id.String())
	if err != nil {
		r.log.Error("report finish(FAILED) failed", "report_id", id, "err", err)
		return common.Tag(common.ErrPersistence, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.Tagf(common.ErrNotFound, "report %s", id)
	}
	r.log.Warn("report finished (FAILED)", "report_id", id, "error", message)
	return nil
}

type sqliteScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteReport(s sqliteScanner) (*entity.Report, error) {
	var (
		rep       entity.Report
		idStr     string
		status    string
		extracted sql.NullString
		errMsg    sql.NullString
		createdAt string
		updatedAt string
	)
	if err := s.Scan(&idStr, &rep.SiteName, &rep.AudioKey, &status, &rep.TranscriptText,
		&extracted, &rep.SummaryText, &errMsg, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, err
	}
	rep.ID = id
	rep.Status = statusFromDB(status)
	if errMsg.Valid {
		rep.ErrorMessage = &errMsg.String
	}
	if extracted.Valid {
		ex, err := unmarshalExtracted([]byte(extracted.String))
		if err != nil {
			return nil, err
		}
		rep.Extracted = ex
	}
	if rep.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if rep.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, err
	}
	return &rep, nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"translation-queue/internal/domain"
	"translation-queue/internal/domain/model"
	"translation-queue/internal/domain/ports/repository"
)

var _ repository.TranslationJobRepository = (*translationJobRepo)(nil)

type translationJobRepo struct{ pool *pgxpool.Pool }

func NewTranslationJobRepo(pool *pgxpool.Pool) *translationJobRepo {
	return &translationJobRepo{pool: pool}
}

const jobColumns = `id, user_id, job_type, status, source_language, target_language, original_content,
  file_info, total_chunks, completed_chunks, failed_chunks, progress_percentage, translated_content,
  estimated_credits, refunded_credits, processing_started_at, processing_completed_at,
  retry_count, error_message, created_at, updated_at`

func (r *translationJobRepo) Create(ctx context.Context, tx repository.Tx, j *model.Job) error {
	var fileInfo []byte
	if j.File != nil {
		b, err := json.Marshal(j.File)
		if err != nil {
			return fmt.Errorf("encode file info: %w", err)
		}
		fileInfo = b
	}
	const q = `
INSERT INTO translation_jobs (
  id, user_id, job_type, status, source_language, target_language, original_content, file_info,
  estimated_credits, consumed_credits, retry_count, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$9,$10,$11,$12);`

	_, err := execSQL(ctx, r.pool, tx, q,
		j.ID, nullIfEmpty(j.OwnerID), string(j.Kind), string(j.Status), j.SourceLanguage, j.TargetLanguage,
		j.Payload, fileInfo, j.CreditsDebited, j.RetryCount, j.CreatedAt, j.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *translationJobRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM translation_jobs WHERE id=$1`
	if inTx(tx) {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	j, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

func (r *translationJobRepo) UpdateJobStatus(ctx context.Context, tx repository.Tx, jobID string, status model.JobStatus, upd repository.JobUpdate) error {
	const q = `
UPDATE translation_jobs SET
  status = $2,
  translated_content = COALESCE($3::text, translated_content),
  error_message = COALESCE($4::text, error_message),
  progress_percentage = COALESCE($5::int, progress_percentage),
  total_chunks = COALESCE($6::int, total_chunks),
  completed_chunks = COALESCE($7::int, completed_chunks),
  failed_chunks = COALESCE($8::int, failed_chunks),
  retry_count = COALESCE($9::int, retry_count),
  processing_started_at = COALESCE($10::timestamptz, processing_started_at),
  processing_completed_at = COALESCE($11::timestamptz, processing_completed_at),
  updated_at = NOW()
WHERE id = $1;`

	tag, err := execSQL(ctx, r.pool, tx, q, jobID, string(status),
		upd.TranslatedText, upd.ErrorMessage, upd.ProgressPercentage, upd.TotalChunks,
		upd.CompletedChunks, upd.FailedChunks, upd.RetryCount, upd.StartedAt, upd.CompletedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *translationJobRepo) ListRefundPending(ctx context.Context, tx repository.Tx, limit int) ([]*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM translation_jobs
WHERE status IN ('failed','cancelled')
  AND user_id IS NOT NULL
  AND estimated_credits > 0
  AND refunded_credits = 0
ORDER BY created_at
LIMIT $1;`
	rows, err := queryRows(ctx, r.pool, tx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (r *translationJobRepo) MarkRefunded(ctx context.Context, tx repository.Tx, jobID string, amount int) error {
	const q = `
UPDATE translation_jobs
   SET refunded_credits = $2,
       consumed_credits = GREATEST(estimated_credits - $2, 0),
       updated_at = NOW()
 WHERE id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, jobID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *translationJobRepo) FailInterrupted(ctx context.Context, tx repository.Tx, reason string, at time.Time) (int64, error) {
	const q = `
UPDATE translation_jobs
   SET status = 'failed', error_message = $1, processing_completed_at = $2, updated_at = $2
 WHERE status IN ('pending','processing');`
	tag, err := execSQL(ctx, r.pool, tx, q, reason, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteTerminalBefore keeps rows that still owe a refund.
func (r *translationJobRepo) DeleteTerminalBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int64, error) {
	const q = `
DELETE FROM translation_jobs
 WHERE status IN ('completed','failed','cancelled')
   AND processing_completed_at < $1
   AND (status = 'completed' OR user_id IS NULL OR estimated_credits = 0 OR refunded_credits > 0);`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*model.Job, error) {
	var (
		j              model.Job
		owner          *string
		kind, status   string
		fileInfo       []byte
		counts         model.ChunkCounts
		output, errMsg *string
	)
	if err := row.Scan(
		&j.ID, &owner, &kind, &status, &j.SourceLanguage, &j.TargetLanguage, &j.Payload,
		&fileInfo, &counts.Total, &counts.Completed, &counts.Failed, &counts.Progress, &output,
		&j.CreditsDebited, &j.CreditsRefunded, &j.StartedAt, &j.CompletedAt,
		&j.RetryCount, &errMsg, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return nil, err
	}
	j.Kind = model.JobKind(kind)
	j.Status = model.JobStatus(status)
	if owner != nil {
		j.OwnerID = *owner
	}
	if output != nil {
		j.Output = *output
	}
	if errMsg != nil {
		j.Error = *errMsg
	}
	if len(fileInfo) > 0 {
		var f model.FileInfo
		if err := json.Unmarshal(fileInfo, &f); err == nil {
			j.File = &f
		}
	}
	j.Stored = &counts
	return &j, nil
}

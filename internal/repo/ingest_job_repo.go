package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
	appErr "github.com/strata-kb/strata/internal/pkg/errors"
	"github.com/strata-kb/strata/internal/pkg/timeutil"
)

const ingestJobColumns = `id, org_id, source, status, processed, total, report, error, ctime, mtime`

type IngestJobRepo struct {
	db *sql.DB
}

func NewIngestJobRepo(db *sql.DB) *IngestJobRepo {
	return &IngestJobRepo{db: db}
}

func (r *IngestJobRepo) Create(ctx context.Context, job *model.IngestJob) error {
	report, err := marshalReport(job.Report)
	if err != nil {
		return err
	}
	sqlStr := `
		INSERT INTO ingest_jobs (` + ingestJobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		job.ID, job.OrgID, job.Source, job.Status, job.Processed, job.Total,
		report, job.Error, job.Ctime, job.Mtime,
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *IngestJobRepo) GetByID(ctx context.Context, orgID, jobID string) (*model.IngestJob, error) {
	sqlStr := `SELECT ` + ingestJobColumns + ` FROM ingest_jobs WHERE id = ? AND org_id = ?`
	args := []interface{}{jobID, orgID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanIngestJob(rows)
}

// UpdateStatusIf moves a job from one status to another. Returns ErrConflict
// when the job is no longer in the expected status.
func (r *IngestJobRepo) UpdateStatusIf(ctx context.Context, jobID, from, to string) error {
	sqlStr := `UPDATE ingest_jobs SET status = ?, mtime = ? WHERE id = ? AND status = ?`
	args := []interface{}{to, timeutil.NowUnix(), jobID, from}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func (r *IngestJobRepo) UpdateProgress(ctx context.Context, jobID string, processed, total int) error {
	sqlStr := `UPDATE ingest_jobs SET processed = ?, total = ?, mtime = ? WHERE id = ?`
	args := []interface{}{processed, total, timeutil.NowUnix(), jobID}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *IngestJobRepo) Complete(ctx context.Context, jobID string, report *model.IngestReport) error {
	blob, err := marshalReport(report)
	if err != nil {
		return err
	}
	sqlStr := `UPDATE ingest_jobs SET status = ?, report = ?, mtime = ? WHERE id = ? AND status = ?`
	args := []interface{}{model.IngestStatusCompleted, blob, timeutil.NowUnix(), jobID, model.IngestStatusRunning}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrConflict
	}
	return nil
}

func (r *IngestJobRepo) Fail(ctx context.Context, jobID, errMsg string) error {
	sqlStr := `UPDATE ingest_jobs SET status = ?, error = ?, mtime = ? WHERE id = ? AND status IN (?, ?)`
	args := []interface{}{model.IngestStatusFailed, errMsg, timeutil.NowUnix(), jobID,
		model.IngestStatusPending, model.IngestStatusRunning}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// FailStale marks running jobs untouched since the cutoff as failed and
// returns how many were affected.
func (r *IngestJobRepo) FailStale(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr := `UPDATE ingest_jobs SET status = ?, error = ?, mtime = ? WHERE status = ? AND mtime < ?`
	args := []interface{}{model.IngestStatusFailed, "job abandoned: no progress before cutoff",
		timeutil.NowUnix(), model.IngestStatusRunning, cutoff}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func marshalReport(report *model.IngestReport) ([]byte, error) {
	if report == nil {
		return []byte("null"), nil
	}
	return json.Marshal(report)
}

func scanIngestJob(rows *sql.Rows) (*model.IngestJob, error) {
	var item model.IngestJob
	var report []byte
	if err := rows.Scan(&item.ID, &item.OrgID, &item.Source, &item.Status,
		&item.Processed, &item.Total, &report, &item.Error, &item.Ctime, &item.Mtime); err != nil {
		return nil, err
	}
	if len(report) > 0 {
		if err := json.Unmarshal(report, &item.Report); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/strata-kb/strata/internal/model"
	"github.com/strata-kb/strata/internal/pkg/dbutil"
)

type AnswerLogRepo struct {
	db *sql.DB
}

func NewAnswerLogRepo(db *sql.DB) *AnswerLogRepo {
	return &AnswerLogRepo{db: db}
}

func (r *AnswerLogRepo) Create(ctx context.Context, log *model.AnswerLog) error {
	sources, err := json.Marshal(log.Sources)
	if err != nil {
		return err
	}
	sqlStr := `
		INSERT INTO answer_logs (id, org_id, question, answer, confidence, sources, tokens_used, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	args := []interface{}{
		log.ID, log.OrgID, log.Question, log.Answer, log.Confidence,
		sources, log.TokensUsed, log.Ctime,
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *AnswerLogRepo) ListRecent(ctx context.Context, orgID string, limit uint) ([]model.AnswerLog, error) {
	sqlStr := `
		SELECT id, org_id, question, answer, confidence, sources, tokens_used, ctime
		FROM answer_logs
		WHERE org_id = ?
		ORDER BY ctime DESC LIMIT ?
	`
	args := []interface{}{orgID, limit}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := make([]model.AnswerLog, 0)
	for rows.Next() {
		var item model.AnswerLog
		var sources []byte
		if err := rows.Scan(&item.ID, &item.OrgID, &item.Question, &item.Answer,
			&item.Confidence, &sources, &item.TokensUsed, &item.Ctime); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sources, &item.Sources); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

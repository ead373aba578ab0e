package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/mag7qa/internal/model"
	"github.com/xxxsen/mag7qa/internal/pkg/dbutil"
	appErr "github.com/xxxsen/mag7qa/internal/pkg/errors"
)

const (
	defaultQALogLimit = 100
	maxQALogLimit     = 500
)

// QALogRepo keeps an audit trail of answered questions.
type QALogRepo struct {
	db *sql.DB
}

func NewQALogRepo(db *sql.DB) *QALogRepo {
	return &QALogRepo{db: db}
}

func (r *QALogRepo) Save(ctx context.Context, item *model.QALog) error {
	data := map[string]interface{}{
		"id":           item.ID,
		"session_id":   item.SessionID,
		"user_id":      item.UserID,
		"query":        item.Query,
		"answer":       item.Answer,
		"confidence":   item.Confidence,
		"degraded":     item.Degraded,
		"sources_json": item.SourcesJSON,
		"ctime":        item.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("qa_logs", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *QALogRepo) ListBySession(ctx context.Context, userID, sessionID string, limit int) ([]model.QALog, error) {
	where := map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"_orderby":   "ctime asc",
		"_limit":     []uint{0, dbutil.ClampLimit(limit, defaultQALogLimit, maxQALogLimit)},
	}
	fields := []string{"id", "session_id", "user_id", "query", "answer", "confidence", "degraded", "sources_json", "ctime"}
	sqlStr, args, err := builder.BuildSelect("qa_logs", where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.QALog, 0)
	for rows.Next() {
		var item model.QALog
		if err := rows.Scan(&item.ID, &item.SessionID, &item.UserID, &item.Query, &item.Answer,
			&item.Confidence, &item.Degraded, &item.SourcesJSON, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *QALogRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	sqlStr, args, err := builder.BuildDelete("qa_logs", map[string]interface{}{"ctime <": cutoff})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

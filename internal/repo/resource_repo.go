package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/cozee/docchat/internal/model"
	"github.com/cozee/docchat/internal/pkg/dbutil"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
)

var resourceFields = []string{"id", "user_id", "kind", "title", "file_key", "file_type", "file_size", "url", "state", "ctime"}

type ResourceRepo struct {
	db *sql.DB
}

func NewResourceRepo(db *sql.DB) *ResourceRepo {
	return &ResourceRepo{db: db}
}

func scanResource(row interface{ Scan(...interface{}) error }) (*model.Resource, error) {
	var res model.Resource
	var kind string
	err := row.Scan(&res.ID, &res.UserID, &kind, &res.Title, &res.FileKey, &res.FileType, &res.FileSize, &res.URL, &res.State, &res.Ctime)
	if err != nil {
		return nil, err
	}
	res.Kind = model.ResourceKind(kind)
	return &res, nil
}

func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
	data := map[string]interface{}{
		"id":        res.ID,
		"user_id":   res.UserID,
		"kind":      string(res.Kind),
		"title":     res.Title,
		"file_key":  res.FileKey,
		"file_type": res.FileType,
		"file_size": res.FileSize,
		"url":       res.URL,
		"state":     res.State,
		"ctime":     res.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("resources", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ResourceRepo) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	where := map[string]interface{}{
		"id":    id,
		"state": model.ResourceStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect("resources", where, resourceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	res, err := scanResource(r.db.QueryRowContext(ctx, sqlStr, args...))
	if err == sql.ErrNoRows {
		return nil, appErr.ErrNotFound
	}
	return res, err
}

func (r *ResourceRepo) ListByUser(ctx context.Context, userID string) ([]*model.Resource, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    model.ResourceStateNormal,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("resources", where, resourceFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Delete removes the resource row; vectors, chats, shares, batch membership
// and ingest status go with it through FK cascades.
func (r *ResourceRepo) Delete(ctx context.Context, userID, id string) error {
	const query = `DELETE FROM resources WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *ResourceRepo) AddBatchMembers(ctx context.Context, batchID string, memberIDs []string) error {
	if len(memberIDs) == 0 {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(memberIDs))
	for _, memberID := range memberIDs {
		rows = append(rows, map[string]interface{}{
			"batch_id":  batchID,
			"member_id": memberID,
		})
	}
	sqlStr, args, err := builder.BuildInsert("batch_members", rows)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ResourceRepo) ListBatchMembers(ctx context.Context, batchID string) ([]*model.Resource, error) {
	const query = `
		SELECT r.id, r.user_id, r.kind, r.title, r.file_key, r.file_type, r.file_size, r.url, r.state, r.ctime
		FROM resources r
		JOIN batch_members m ON r.id = m.member_id
		WHERE m.batch_id = $1 AND r.state = $2
	`
	rows, err := r.db.QueryContext(ctx, query, batchID, model.ResourceStateNormal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// ListFailedBefore returns resources whose ingest run failed before cutoff.
func (r *ResourceRepo) ListFailedBefore(ctx context.Context, cutoff int64, limit int) ([]*model.Resource, error) {
	const query = `
		SELECT r.id, r.user_id, r.kind, r.title, r.file_key, r.file_type, r.file_size, r.url, r.state, r.ctime
		FROM resources r
		JOIN ingest_status s ON r.id = s.resource_id
		WHERE s.progress = -1 AND s.mtime < $1
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

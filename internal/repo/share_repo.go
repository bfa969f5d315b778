package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/cozee/docchat/internal/model"
	"github.com/cozee/docchat/internal/pkg/dbutil"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
)

var shareFields = []string{"id", "token", "resource_id", "user_id", "ctime"}

type ShareRepo struct {
	db *sql.DB
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

func (r *ShareRepo) Create(ctx context.Context, share *model.Share) error {
	data := map[string]interface{}{
		"id":          share.ID,
		"token":       share.Token,
		"resource_id": share.ResourceID,
		"user_id":     share.UserID,
		"ctime":       share.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("shares", []map[string]interface{}{data})
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

func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*model.Share, error) {
	return r.getOne(ctx, map[string]interface{}{"token": token})
}

func (r *ShareRepo) GetByID(ctx context.Context, id string) (*model.Share, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *ShareRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Share, error) {
	sqlStr, args, err := builder.BuildSelect("shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var share model.Share
	if err := row.Scan(&share.ID, &share.Token, &share.ResourceID, &share.UserID, &share.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &share, nil
}

func (r *ShareRepo) ListByUser(ctx context.Context, userID string) ([]*model.Share, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Share
	for rows.Next() {
		var share model.Share
		if err := rows.Scan(&share.ID, &share.Token, &share.ResourceID, &share.UserID, &share.Ctime); err != nil {
			return nil, err
		}
		out = append(out, &share)
	}
	return out, rows.Err()
}

func (r *ShareRepo) Delete(ctx context.Context, userID, shareID string) error {
	const query = `DELETE FROM shares WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, shareID, userID)
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

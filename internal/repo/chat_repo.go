package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/cozee/docchat/internal/model"
	"github.com/cozee/docchat/internal/pkg/dbutil"
	appErr "github.com/cozee/docchat/internal/pkg/errors"
)

var chatFields = []string{"id", "user_id", "resource_id", "title", "ctime"}

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

func (r *ChatRepo) Create(ctx context.Context, chat *model.Chat) error {
	data := map[string]interface{}{
		"id":          chat.ID,
		"user_id":     chat.UserID,
		"resource_id": chat.ResourceID,
		"title":       chat.Title,
		"ctime":       chat.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("chats", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *ChatRepo) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	where := map[string]interface{}{
		"id": id,
	}
	sqlStr, args, err := builder.BuildSelect("chats", where, chatFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr, args...)
	var chat model.Chat
	if err := row.Scan(&chat.ID, &chat.UserID, &chat.ResourceID, &chat.Title, &chat.Ctime); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepo) ListByResource(ctx context.Context, userID, resourceID string) ([]*model.Chat, error) {
	where := map[string]interface{}{
		"user_id":     userID,
		"resource_id": resourceID,
		"_orderby":    "ctime desc",
	}
	sqlStr, args, err := builder.BuildSelect("chats", where, chatFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Chat
	for rows.Next() {
		var chat model.Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.ResourceID, &chat.Title, &chat.Ctime); err != nil {
			return nil, err
		}
		out = append(out, &chat)
	}
	return out, rows.Err()
}

func (r *ChatRepo) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	where := map[string]interface{}{
		"id":      chatID,
		"user_id": userID,
	}
	update := map[string]interface{}{
		"title": title,
	}
	sqlStr, args, err := builder.BuildUpdate("chats", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
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

func (r *ChatRepo) Delete(ctx context.Context, userID, chatID string) error {
	const query = `DELETE FROM chats WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, chatID, userID)
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

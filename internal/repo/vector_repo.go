package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/cozee/docchat/internal/model"
)

type VectorRepo struct {
	db *sql.DB
}

func NewVectorRepo(db *sql.DB) *VectorRepo {
	return &VectorRepo{db: db}
}

func (r *VectorRepo) Save(ctx context.Context, v *model.Vector) error {
	const query = `
		INSERT INTO vectors (resource_id, user_id, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ResourceID,
		v.UserID,
		v.Content,
		pgvector.NewVector(v.Embedding),
		v.Ctime,
	)
	return err
}

func (r *VectorRepo) ListByResource(ctx context.Context, resourceID string) ([]*model.Vector, error) {
	const query = `
		SELECT id, resource_id, user_id, content, embedding, ctime
		FROM vectors
		WHERE resource_id = $1
		ORDER BY id
	`
	return r.queryVectors(ctx, query, resourceID)
}

// ListByResources returns the union of vectors across the given resources,
// used for batch resources.
func (r *VectorRepo) ListByResources(ctx context.Context, resourceIDs []string) ([]*model.Vector, error) {
	if len(resourceIDs) == 0 {
		return nil, nil
	}
	const query = `
		SELECT id, resource_id, user_id, content, embedding, ctime
		FROM vectors
		WHERE resource_id = ANY($1)
		ORDER BY id
	`
	return r.queryVectors(ctx, query, pq.Array(resourceIDs))
}

func (r *VectorRepo) DeleteByResource(ctx context.Context, resourceID string) (int64, error) {
	const query = `DELETE FROM vectors WHERE resource_id = $1`
	res, err := r.db.ExecContext(ctx, query, resourceID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *VectorRepo) queryVectors(ctx context.Context, query string, args ...interface{}) ([]*model.Vector, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Vector
	for rows.Next() {
		var v model.Vector
		var embedding pgvector.Vector
		if err := rows.Scan(&v.ID, &v.ResourceID, &v.UserID, &v.Content, &embedding, &v.Ctime); err != nil {
			return nil, err
		}
		v.Embedding = embedding.Slice()
		out = append(out, &v)
	}
	return out, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/jask/compass/internal/database"
)

// ActivityRepo handles the export/upload history.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

// Record inserts a, assigning an id when it has none.
func (r *ActivityRepo) Record(ctx context.Context, a Activity) (Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Kind != KindExport && a.Kind != KindUpload {
		return Activity{}, fmt.Errorf("activity: unknown kind %q", a.Kind)
	}
	ok := 0
	if a.OK {
		ok = 1
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = database.Now()
	}
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO activity(id, kind, target, detail, ok, error, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?);
	`, a.ID, string(a.Kind), a.Target, a.Detail, ok, a.Error, a.CreatedAt)
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

// Recent returns up to limit rows, newest first.
func (r *ActivityRepo) Recent(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, kind, target, detail, ok, error, created_at
	FROM activity
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Activity
	for rows.Next() {
		var (
			a    Activity
			kind string
			ok   int
		)
		if err := rows.Scan(&a.ID, &kind, &a.Target, &a.Detail, &ok, &a.Error, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Kind = ActivityKind(kind)
		a.OK = ok != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

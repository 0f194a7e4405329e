package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

var _ docstore.Backend = (*DB)(nil)

type documentRow struct {
	ID        string         `db:"id"`
	Data      map[string]any `db:"data"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r documentRow) toDocument() docstore.Document {
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	return docstore.Document{
		ID:        r.ID,
		Data:      data,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// Insert stores a new document in the collection
func (db *DB) Insert(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	payload, err := json.Marshal(docstore.CloneData(data))
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to encode document: %w", err)
	}

	var row documentRow
	err = db.q.Get(ctx, &row, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING id, data, created_at, updated_at
	`, collection, uuid.New().String(), string(payload))
	if err != nil {
		return docstore.Document{}, fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return row.toDocument(), nil
}

// Get retrieves one document by id
func (db *DB) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var row documentRow
	err := db.q.Get(ctx, &row, `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		if pgxscan.NotFound(err) {
			return docstore.Document{}, docstore.ErrNotFound
		}
		return docstore.Document{}, fmt.Errorf("failed to get %s/%s: %w", collection, id, err)
	}
	return row.toDocument(), nil
}

// Query retrieves documents matching every filter, newest first
func (db *DB) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := db.q.Select(ctx, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	docs := make([]docstore.Document, 0, len(rows))
	for _, r := range rows {
		docs = append(docs, r.toDocument())
	}
	return docs, nil
}

// Merge overwrites top-level fields of an existing document
func (db *DB) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}

	tag, err := db.q.Exec(ctx, `
		UPDATE documents
		SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(payload))
	if err != nil {
		return fmt.Errorf("failed to update %s/%s: %w", collection, id, err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

// Delete removes a document; missing documents are ignored
func (db *DB) Delete(ctx context.Context, collection, id string) error {
	_, err := db.q.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// buildQuery turns equality filters into a single JSONB containment check
func buildQuery(collection string, q docstore.Query) (string, []any, error) {
	sql := `SELECT id, data, created_at, updated_at FROM documents WHERE collection = $1`
	args := []any{collection}

	if len(q.Filters) > 0 {
		match := make(map[string]any, len(q.Filters))
		for _, f := range q.Filters {
			match[f.Field] = f.Value
		}
		payload, err := json.Marshal(match)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode filters: %w", err)
		}
		args = append(args, string(payload))
		sql += fmt.Sprintf(" AND data @> $%d::jsonb", len(args))
	}

	sql += " ORDER BY created_at DESC, seq DESC"

	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return sql, args, nil
}

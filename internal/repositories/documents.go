package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"natours/internal/apperror"
	"natours/internal/query"
)

// findDocuments runs q against s and returns one JSON document per row.
func findDocuments(ctx context.Context, db *sql.DB, s *query.Schema, q *query.Query) ([]json.RawMessage, error) {
	stmt, args, err := query.Compile(q, s)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, apperror.FromDB(err)
	}
	defer rows.Close()

	docs := []json.RawMessage{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.FromDB(err)
	}
	return docs, nil
}

// findDocument loads a single document by id, or a 404 naming resource.
func findDocument(ctx context.Context, db *sql.DB, s *query.Schema, id int64, resource string) (json.RawMessage, error) {
	docs, err := findDocuments(ctx, db, s, byID(id))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperror.NotFound(resource)
	}
	return docs[0], nil
}

func findOne[T any](ctx context.Context, db *sql.DB, s *query.Schema, filter map[string]any, resource string) (*T, error) {
	docs, err := findDocuments(ctx, db, s, &query.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperror.NotFound(resource)
	}
	var v T
	if err := json.Unmarshal(docs[0], &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return &v, nil
}

func byID(id int64) *query.Query {
	return &query.Query{
		Filter:     map[string]any{"id": id},
		Projection: query.Projection{Fields: []string{query.VersionField}, Exclude: true},
	}
}

func jsonOrNil(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	if string(b) == "null" {
		return nil, nil
	}
	return b, nil
}

func expectOneRow(res sql.Result, resource string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound(resource)
	}
	return nil
}

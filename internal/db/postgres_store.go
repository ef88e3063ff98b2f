package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tordrt/richtextmigrate/internal/field"
)

// PostgresStore reads and updates field rows on a PostgreSQL connection
type PostgresStore struct {
	client *PostgresClient
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(client *PostgresClient) *PostgresStore {
	return &PostgresStore{client: client}
}

// ResolveContentTypes maps content type identifiers to their ids. Identifiers
// without a content type are missing from the result.
func (s *PostgresStore) ResolveContentTypes(ctx context.Context, identifiers []string) (map[string][]int64, error) {
	resolved := make(map[string][]int64)
	if len(identifiers) == 0 {
		return resolved, nil
	}

	query, args := resolveContentTypesQuery(dollar, identifiers)
	rows, err := s.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query content types: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var identifier string
		if err := rows.Scan(&id, &identifier); err != nil {
			return nil, fmt.Errorf("failed to scan content type: %w", err)
		}
		resolved[identifier] = append(resolved[identifier], id)
	}

	return resolved, rows.Err()
}

// Count returns the number of legacy rows of table within scope
func (s *PostgresStore) Count(ctx context.Context, table field.Table, marker string, scope field.Scope) (int64, error) {
	query, args := countQuery(dollar, table, marker, scope)

	var n int64
	if err := s.client.GetConnection().QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// DefinitionPage returns up to limit legacy definitions ordered by key,
// starting after the given key (from the beginning when after is nil)
func (s *PostgresStore) DefinitionPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Definition, error) {
	query, args := definitionPageQuery(dollar, marker, scope, after, limit)
	rows, err := s.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query field definitions: %w", err)
	}

	page, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (field.Definition, error) {
		return scanDefinition(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan field definitions: %w", err)
	}
	return page, nil
}

// RecordPage returns up to limit legacy field rows ordered by key, starting
// after the given key (from the beginning when after is nil)
func (s *PostgresStore) RecordPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Record, error) {
	query, args := recordPageQuery(dollar, marker, scope, after, limit)
	rows, err := s.client.GetConnection().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query field rows: %w", err)
	}

	page, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (field.Record, error) {
		return scanRecord(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan field rows: %w", err)
	}
	return page, nil
}

// ConvertDefinitions switches all legacy definitions in scope to the target
// marker in one statement and returns the number of rows changed
func (s *PostgresStore) ConvertDefinitions(ctx context.Context, markers field.Markers, scope field.Scope) (int64, error) {
	query, args := convertDefinitionsQuery(dollar, markers, scope)
	tag, err := s.client.GetConnection().Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update field definitions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateRecord stores the converted value of one field row
func (s *PostgresStore) UpdateRecord(ctx context.Context, key field.Key, marker, value string) error {
	query, args := updateRecordQuery(dollar, key, marker, value)
	tag, err := s.client.GetConnection().Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("field %s: %w", key, ErrRowNotFound)
	}
	return nil
}

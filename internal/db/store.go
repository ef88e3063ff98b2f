package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/tordrt/richtextmigrate/internal/field"
)

// ErrRowNotFound is returned when an update matched no row
var ErrRowNotFound = errors.New("no row matched the update")

// rowScanner is implemented by *sql.Rows and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(r rowScanner) (field.Definition, error) {
	var d field.Definition
	var aux sql.NullString
	if err := r.Scan(&d.ID, &d.Version, &d.ContentTypeID, &d.TypeMarker, &aux); err != nil {
		return field.Definition{}, err
	}
	if aux.Valid {
		d.AuxiliaryData = &aux.String
	}
	return d, nil
}

func scanRecord(r rowScanner) (field.Record, error) {
	var rec field.Record
	var raw sql.NullString
	if err := r.Scan(&rec.ID, &rec.Version, &rec.DefinitionID, &rec.TypeMarker, &raw); err != nil {
		return field.Record{}, err
	}
	rec.RawValue = raw.String
	return rec, nil
}

// SQLStore reads and updates field rows through database/sql. It serves the
// SQLite and MySQL clients, which share the ? placeholder syntax.
type SQLStore struct {
	db *sql.DB
	ph placeholder
}

// NewSQLiteStore creates a store on an SQLite connection
func NewSQLiteStore(client *SQLiteClient) *SQLStore {
	return &SQLStore{db: client.GetDB(), ph: questionMark}
}

// NewMySQLStore creates a store on a MySQL connection
func NewMySQLStore(client *MySQLClient) *SQLStore {
	return &SQLStore{db: client.GetDB(), ph: questionMark}
}

// ResolveContentTypes maps content type identifiers to their ids. Identifiers
// without a content type are missing from the result.
func (s *SQLStore) ResolveContentTypes(ctx context.Context, identifiers []string) (map[string][]int64, error) {
	resolved := make(map[string][]int64)
	if len(identifiers) == 0 {
		return resolved, nil
	}

	query, args := resolveContentTypesQuery(s.ph, identifiers)
	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLStore) Count(ctx context.Context, table field.Table, marker string, scope field.Scope) (int64, error) {
	query, args := countQuery(s.ph, table, marker, scope)

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// DefinitionPage returns up to limit legacy definitions ordered by key,
// starting after the given key (from the beginning when after is nil)
func (s *SQLStore) DefinitionPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Definition, error) {
	query, args := definitionPageQuery(s.ph, marker, scope, after, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query field definitions: %w", err)
	}
	defer rows.Close()

	var page []field.Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field definition: %w", err)
		}
		page = append(page, d)
	}

	return page, rows.Err()
}

// RecordPage returns up to limit legacy field rows ordered by key, starting
// after the given key (from the beginning when after is nil)
func (s *SQLStore) RecordPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Record, error) {
	query, args := recordPageQuery(s.ph, marker, scope, after, limit)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query field rows: %w", err)
	}
	defer rows.Close()

	var page []field.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field row: %w", err)
		}
		page = append(page, rec)
	}

	return page, rows.Err()
}

// ConvertDefinitions switches all legacy definitions in scope to the target
// marker in one statement and returns the number of rows changed
func (s *SQLStore) ConvertDefinitions(ctx context.Context, markers field.Markers, scope field.Scope) (int64, error) {
	query, args := convertDefinitionsQuery(s.ph, markers, scope)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update field definitions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// UpdateRecord stores the converted value of one field row
func (s *SQLStore) UpdateRecord(ctx context.Context, key field.Key, marker, value string) error {
	query, args := updateRecordQuery(s.ph, key, marker, value)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update field %s: %w", key, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("field %s: %w", key, ErrRowNotFound)
	}
	return nil
}

// Package migrate converts legacy XmlText fields of a content repository to
// RichText. A Runner drives the two migration phases over a Store: field
// definitions are switched with one bulk update, field rows are converted and
// written back one by one.
package migrate

import (
	"context"
	"fmt"

	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/xmltext"
)

// Store is the storage the migration reads from and writes to. Page methods
// return rows ordered by key, starting after the given key or from the first
// row when after is nil.
type Store interface {
	ResolveContentTypes(ctx context.Context, identifiers []string) (map[string][]int64, error)
	Count(ctx context.Context, table field.Table, marker string, scope field.Scope) (int64, error)
	DefinitionPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Definition, error)
	RecordPage(ctx context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Record, error)
	ConvertDefinitions(ctx context.Context, markers field.Markers, scope field.Scope) (int64, error)
	UpdateRecord(ctx context.Context, key field.Key, marker, value string) error
}

// Converter converts one stored legacy value
type Converter interface {
	Convert(raw string) (xmltext.Result, error)
}

// StorageError reports a write that failed after its retries
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

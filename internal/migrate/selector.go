package migrate

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strconv"
	"strings"

	"github.com/tordrt/richtextmigrate/internal/field"
)

// DefaultBatchSize is the page size used when none is configured
const DefaultBatchSize = 100

// Selector finds the legacy rows a migration has to touch
type Selector struct {
	store     Store
	marker    string
	batchSize int
}

// NewSelector creates a selector for rows tagged with marker, reading
// batchSize rows per query
func NewSelector(store Store, marker string, batchSize int) *Selector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Selector{store: store, marker: marker, batchSize: batchSize}
}

// Count returns the number of rows Definitions or Records would yield for
// scope
func (s *Selector) Count(ctx context.Context, scope field.Scope, table field.Table) (int64, error) {
	return s.store.Count(ctx, table, s.marker, scope)
}

// Definitions lazily yields the legacy field definitions within scope
func (s *Selector) Definitions(ctx context.Context, scope field.Scope) iter.Seq2[field.Definition, error] {
	return paginate(ctx, s.batchSize,
		func(d field.Definition) field.Key { return d.Key },
		func(ctx context.Context, after *field.Key, limit int) ([]field.Definition, error) {
			return s.store.DefinitionPage(ctx, s.marker, scope, after, limit)
		})
}

// Records lazily yields the legacy field rows within scope. Every page is
// read completely before its rows are yielded, so rows may be updated while
// iterating.
func (s *Selector) Records(ctx context.Context, scope field.Scope) iter.Seq2[field.Record, error] {
	return paginate(ctx, s.batchSize,
		func(r field.Record) field.Key { return r.Key },
		func(ctx context.Context, after *field.Key, limit int) ([]field.Record, error) {
			return s.store.RecordPage(ctx, s.marker, scope, after, limit)
		})
}

// paginate walks a keyset paginated query. A read error is yielded once and
// ends the sequence.
func paginate[T any](
	ctx context.Context,
	size int,
	key func(T) field.Key,
	page func(ctx context.Context, after *field.Key, limit int) ([]T, error),
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		var after *field.Key
		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}

			rows, err := page(ctx, after, size)
			if err != nil {
				yield(zero, err)
				return
			}
			for _, row := range rows {
				if !yield(row, nil) {
					return
				}
			}
			if len(rows) < size {
				return
			}

			last := key(rows[len(rows)-1])
			after = &last
		}
	}
}

// ResolveScope turns content type arguments into a scope. Numeric arguments
// are content type ids, anything else is a content type identifier looked up
// in storage. Unknown identifiers are an error.
func (s *Selector) ResolveScope(ctx context.Context, args []string) (field.Scope, error) {
	var ids []int64
	var identifiers []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}
		identifiers = append(identifiers, arg)
	}

	if len(identifiers) > 0 {
		resolved, err := s.store.ResolveContentTypes(ctx, identifiers)
		if err != nil {
			return field.Scope{}, fmt.Errorf("failed to resolve content types: %w", err)
		}

		var unknown []string
		for _, ident := range identifiers {
			found, ok := resolved[ident]
			if !ok || len(found) == 0 {
				unknown = append(unknown, ident)
				continue
			}
			ids = append(ids, found...)
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return field.Scope{}, fmt.Errorf("unknown content types: %s", strings.Join(unknown, ", "))
		}
	}

	return field.NewScope(ids...), nil
}

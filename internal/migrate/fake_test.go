package migrate

import (
	"context"
	"errors"
	"sort"

	"github.com/tordrt/richtextmigrate/internal/field"
)

var errUnavailable = errors.New("database unavailable")

// memStore is an in-memory Store keeping rows sorted by key
type memStore struct {
	contentTypes map[string][]int64
	definitions  []field.Definition
	records      []field.Record

	// updateFailures makes the next n updates of a key fail
	updateFailures map[field.Key]int
	updateErr      error
	convertErr     error
	countErr       error
	pageErr        error

	convertCalls int
	updateCalls  map[field.Key]int
	pageCalls    int
}

func newMemStore() *memStore {
	return &memStore{
		contentTypes:   make(map[string][]int64),
		updateFailures: make(map[field.Key]int),
		updateCalls:    make(map[field.Key]int),
	}
}

func (s *memStore) addDefinition(id, contentTypeID int64, marker string) {
	aux := "legacy"
	s.definitions = append(s.definitions, field.Definition{
		Key:           field.Key{ID: id, Version: 0},
		ContentTypeID: contentTypeID,
		TypeMarker:    marker,
		AuxiliaryData: &aux,
	})
	sort.Slice(s.definitions, func(i, j int) bool { return s.definitions[i].Key.Less(s.definitions[j].Key) })
}

func (s *memStore) addRecord(id, version, definitionID int64, raw string) {
	s.records = append(s.records, field.Record{
		Key:          field.Key{ID: id, Version: version},
		DefinitionID: definitionID,
		TypeMarker:   field.LegacyMarker,
		RawValue:     raw,
	})
	sort.Slice(s.records, func(i, j int) bool { return s.records[i].Key.Less(s.records[j].Key) })
}

func (s *memStore) record(key field.Key) field.Record {
	for _, r := range s.records {
		if r.Key == key {
			return r
		}
	}
	return field.Record{}
}

func (s *memStore) inScope(contentTypeID int64, scope field.Scope) bool {
	if scope.IsEmpty() {
		return true
	}
	for _, id := range scope.ContentTypeIDs {
		if id == contentTypeID {
			return true
		}
	}
	return false
}

func (s *memStore) recordInScope(r field.Record, scope field.Scope) bool {
	if scope.IsEmpty() {
		return true
	}
	for _, d := range s.definitions {
		if d.ID == r.DefinitionID && s.inScope(d.ContentTypeID, scope) {
			return true
		}
	}
	return false
}

func (s *memStore) ResolveContentTypes(_ context.Context, identifiers []string) (map[string][]int64, error) {
	out := make(map[string][]int64)
	for _, ident := range identifiers {
		if ids, ok := s.contentTypes[ident]; ok {
			out[ident] = ids
		}
	}
	return out, nil
}

func (s *memStore) Count(ctx context.Context, table field.Table, marker string, scope field.Scope) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	var n int64
	if table == field.Definitions {
		defs, _ := s.DefinitionPage(ctx, marker, scope, nil, len(s.definitions)+1)
		n = int64(len(defs))
	} else {
		recs, _ := s.RecordPage(ctx, marker, scope, nil, len(s.records)+1)
		n = int64(len(recs))
	}
	return n, nil
}

func (s *memStore) DefinitionPage(_ context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Definition, error) {
	var page []field.Definition
	for _, d := range s.definitions {
		if d.TypeMarker != marker || !s.inScope(d.ContentTypeID, scope) || (after != nil && !after.Less(d.Key)) {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, d)
	}
	return page, nil
}

func (s *memStore) RecordPage(_ context.Context, marker string, scope field.Scope, after *field.Key, limit int) ([]field.Record, error) {
	s.pageCalls++
	if s.pageErr != nil {
		return nil, s.pageErr
	}
	var page []field.Record
	for _, r := range s.records {
		if r.TypeMarker != marker || !s.recordInScope(r, scope) || (after != nil && !after.Less(r.Key)) {
			continue
		}
		if len(page) == limit {
			break
		}
		page = append(page, r)
	}
	return page, nil
}

func (s *memStore) ConvertDefinitions(_ context.Context, markers field.Markers, scope field.Scope) (int64, error) {
	s.convertCalls++
	if s.convertErr != nil {
		return 0, s.convertErr
	}
	var n int64
	for i := range s.definitions {
		d := &s.definitions[i]
		if d.TypeMarker == markers.Legacy && s.inScope(d.ContentTypeID, scope) {
			d.TypeMarker = markers.Target
			d.AuxiliaryData = nil
			n++
		}
	}
	return n, nil
}

func (s *memStore) UpdateRecord(_ context.Context, key field.Key, marker, value string) error {
	s.updateCalls[key]++
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.updateFailures[key] > 0 {
		s.updateFailures[key]--
		return errUnavailable
	}
	for i := range s.records {
		if s.records[i].Key == key {
			s.records[i].TypeMarker = marker
			s.records[i].RawValue = value
			return nil
		}
	}
	return errors.New("no such row")
}

func (s *memStore) totalUpdates() int {
	n := 0
	for _, c := range s.updateCalls {
		n += c
	}
	return n
}

package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tordrt/richtextmigrate/internal/field"
)

// Table and column names of the content repository
const (
	contentTypeTable = "ezcontentclass"
	definitionTable  = "ezcontentclass_attribute"
	recordTable      = "ezcontentobject_attribute"
)

// placeholder renders the n-th (1-based) bind parameter of a dialect
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

// queryBuilder renders the statements shared by every dialect
type queryBuilder struct {
	ph   placeholder
	args []any
}

func newQueryBuilder(ph placeholder) *queryBuilder {
	return &queryBuilder{ph: ph}
}

// bind registers v and returns its placeholder
func (b *queryBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return b.ph(len(b.args))
}

func (b *queryBuilder) bindList(ids []int64) string {
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = b.bind(id)
	}
	return strings.Join(marks, ", ")
}

// where renders the legacy row filter of table
func (b *queryBuilder) where(table field.Table, marker string, scope field.Scope) string {
	cond := "a.data_type_string = " + b.bind(marker)
	if scope.IsEmpty() {
		return cond
	}
	ids := b.bindList(scope.ContentTypeIDs)
	switch table {
	case field.Definitions:
		return cond + " AND a.contentclass_id IN (" + ids + ")"
	default:
		return cond + " AND a.contentclassattribute_id IN (" +
			"SELECT c.id FROM " + definitionTable + " c WHERE c.contentclass_id IN (" + ids + "))"
	}
}

// after renders the keyset condition continuing a scan past key
func (b *queryBuilder) after(key *field.Key) string {
	if key == nil {
		return ""
	}
	return fmt.Sprintf(" AND (a.id > %s OR (a.id = %s AND a.version > %s))",
		b.bind(key.ID), b.bind(key.ID), b.bind(key.Version))
}

func tableName(table field.Table) string {
	if table == field.Definitions {
		return definitionTable
	}
	return recordTable
}

func countQuery(ph placeholder, table field.Table, marker string, scope field.Scope) (string, []any) {
	b := newQueryBuilder(ph)
	q := "SELECT COUNT(*) FROM " + tableName(table) + " a WHERE " + b.where(table, marker, scope)
	return q, b.args
}

func definitionPageQuery(ph placeholder, marker string, scope field.Scope, after *field.Key, limit int) (string, []any) {
	b := newQueryBuilder(ph)
	q := "SELECT a.id, a.version, a.contentclass_id, a.data_type_string, a.data_text2 FROM " + definitionTable +
		" a WHERE " + b.where(field.Definitions, marker, scope) + b.after(after) +
		" ORDER BY a.id, a.version LIMIT " + strconv.Itoa(limit)
	return q, b.args
}

func recordPageQuery(ph placeholder, marker string, scope field.Scope, after *field.Key, limit int) (string, []any) {
	b := newQueryBuilder(ph)
	q := "SELECT a.id, a.version, a.contentclassattribute_id, a.data_type_string, a.data_text FROM " + recordTable +
		" a WHERE " + b.where(field.Records, marker, scope) + b.after(after) +
		" ORDER BY a.id, a.version LIMIT " + strconv.Itoa(limit)
	return q, b.args
}

// convertDefinitionsQuery switches every legacy definition in scope to the
// target marker and clears their auxiliary data
func convertDefinitionsQuery(ph placeholder, markers field.Markers, scope field.Scope) (string, []any) {
	b := newQueryBuilder(ph)
	q := "UPDATE " + definitionTable + " SET data_type_string = " + b.bind(markers.Target) +
		", data_text2 = NULL WHERE data_type_string = " + b.bind(markers.Legacy)
	if !scope.IsEmpty() {
		q += " AND contentclass_id IN (" + b.bindList(scope.ContentTypeIDs) + ")"
	}
	return q, b.args
}

func updateRecordQuery(ph placeholder, key field.Key, marker, value string) (string, []any) {
	b := newQueryBuilder(ph)
	q := "UPDATE " + recordTable + " SET data_type_string = " + b.bind(marker) +
		", data_text = " + b.bind(value) +
		" WHERE id = " + b.bind(key.ID) + " AND version = " + b.bind(key.Version)
	return q, b.args
}

func resolveContentTypesQuery(ph placeholder, identifiers []string) (string, []any) {
	b := newQueryBuilder(ph)
	marks := make([]string, len(identifiers))
	for i, ident := range identifiers {
		marks[i] = b.bind(ident)
	}
	q := "SELECT DISTINCT id, identifier FROM " + contentTypeTable +
		" WHERE identifier IN (" + strings.Join(marks, ", ") + ") ORDER BY id"
	return q, b.args
}

//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"

	"github.com/tordrt/richtextmigrate/internal/field"
	"github.com/tordrt/richtextmigrate/internal/migrate"
	"github.com/tordrt/richtextmigrate/internal/xmltext"
)

// execFunc runs one statement without arguments
type execFunc func(ctx context.Context, stmt string) error

var schemaStatements = []string{
	`DROP TABLE IF EXISTS ezcontentobject_attribute`,
	`DROP TABLE IF EXISTS ezcontentclass_attribute`,
	`DROP TABLE IF EXISTS ezcontentclass`,
	`CREATE TABLE ezcontentclass (
		id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		identifier VARCHAR(50) NOT NULL,
		PRIMARY KEY (id, version)
	)`,
	`CREATE TABLE ezcontentclass_attribute (
		id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		contentclass_id INTEGER NOT NULL,
		data_type_string VARCHAR(50) NOT NULL,
		data_text2 VARCHAR(50),
		PRIMARY KEY (id, version)
	)`,
	`CREATE TABLE ezcontentobject_attribute (
		id INTEGER NOT NULL,
		version INTEGER NOT NULL,
		contentclassattribute_id INTEGER NOT NULL,
		data_type_string VARCHAR(50) NOT NULL,
		data_text TEXT,
		PRIMARY KEY (id, version)
	)`,
}

var fixtureStatements = []string{
	`INSERT INTO ezcontentclass (id, version, identifier) VALUES (1, 0, 'folder'), (2, 0, 'article'), (2, 1, 'article')`,
	`INSERT INTO ezcontentclass_attribute (id, version, contentclass_id, data_type_string, data_text2) VALUES
		(10, 0, 1, 'ezxmltext', 'cfg'),
		(20, 0, 2, 'ezxmltext', 'cfg'),
		(21, 0, 2, 'ezstring', NULL)`,
	`INSERT INTO ezcontentobject_attribute (id, version, contentclassattribute_id, data_type_string, data_text) VALUES
		(100, 1, 10, 'ezxmltext', '<section><paragraph>Folder text</paragraph></section>'),
		(101, 1, 20, 'ezxmltext', NULL),
		(101, 2, 20, 'ezxmltext', '<?xml version="1.0" encoding="utf-8"?><section><paragraph><link>bad</link></paragraph></section>'),
		(102, 1, 20, 'ezxmltext', '<section><paragraph>'),
		(103, 1, 21, 'ezstring', 'plain')`,
}

// malformedRow is the fixture row that cannot be converted
var malformedRow = field.Key{ID: 102, Version: 1}

// loadFixtures recreates the content tables and fills them with fixtures
func loadFixtures(t *testing.T, exec execFunc) {
	t.Helper()

	ctx := context.Background()
	for _, stmt := range append(append([]string(nil), schemaStatements...), fixtureStatements...) {
		if err := exec(ctx, stmt); err != nil {
			t.Fatalf("Failed to load fixtures: %v\n%s", err, stmt)
		}
	}
}

// recordsByKey reads every field row tagged with marker
func recordsByKey(t *testing.T, store migrate.Store, marker string) map[field.Key]field.Record {
	t.Helper()

	rows, err := store.RecordPage(context.Background(), marker, field.Scope{}, nil, 1000)
	if err != nil {
		t.Fatalf("Failed to read field rows: %v", err)
	}
	out := make(map[field.Key]field.Record, len(rows))
	for _, r := range rows {
		out[r.Key] = r
	}
	return out
}

// definitionIDs reads the ids of every field definition tagged with marker
func definitionIDs(t *testing.T, store migrate.Store, marker string) []int64 {
	t.Helper()

	defs, err := store.DefinitionPage(context.Background(), marker, field.Scope{}, nil, 1000)
	if err != nil {
		t.Fatalf("Failed to read field definitions: %v", err)
	}
	var ids []int64
	for _, d := range defs {
		if marker == field.TargetMarker && d.AuxiliaryData != nil {
			t.Errorf("Expected data_text2 of definition %s to be cleared", d.Key)
		}
		ids = append(ids, d.ID)
	}
	return ids
}

// verifyPhase checks the counters of one phase
func verifyPhase(t *testing.T, got migrate.PhaseReport, found, converted, warnings, failed int64) {
	t.Helper()

	if got.Found != found {
		t.Errorf("%s: expected found %d, got %d", got.Table, found, got.Found)
	}
	if got.Converted != converted {
		t.Errorf("%s: expected converted %d, got %d", got.Table, converted, got.Converted)
	}
	if got.ValidationWarnings != warnings {
		t.Errorf("%s: expected %d validation warnings, got %d", got.Table, warnings, got.ValidationWarnings)
	}
	if got.Failed != failed {
		t.Errorf("%s: expected failed %d, got %d", got.Table, failed, got.Failed)
	}
}

// verifyFullMigration checks the state after migrating every content type
func verifyFullMigration(t *testing.T, store migrate.Store, report *migrate.Report) {
	t.Helper()

	verifyPhase(t, report.Definitions, 2, 2, 0, 0)
	verifyPhase(t, report.Records, 4, 3, 1, 1)

	if ids := definitionIDs(t, store, field.TargetMarker); len(ids) != 2 || ids[0] != 10 || ids[1] != 20 {
		t.Errorf("Expected definitions 10 and 20 to be converted, got %v", ids)
	}

	converted := recordsByKey(t, store, field.TargetMarker)
	if len(converted) != 3 {
		t.Errorf("Expected 3 converted rows, got %d", len(converted))
	}
	if got := converted[field.Key{ID: 101, Version: 1}].RawValue; got != xmltext.EmptyValue {
		t.Errorf("Expected NULL value to convert to the empty document, got %q", got)
	}
	for key, rec := range converted {
		if len(rec.RawValue) == 0 || rec.RawValue[:5] != "<?xml" {
			t.Errorf("Row %s does not hold a RichText document: %q", key, rec.RawValue)
		}
	}

	legacy := recordsByKey(t, store, field.LegacyMarker)
	if _, ok := legacy[malformedRow]; !ok || len(legacy) != 1 {
		t.Errorf("Expected only the malformed row to stay legacy, got %v", legacy)
	}
}

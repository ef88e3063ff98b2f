package field

import (
	"fmt"
	"sort"
)

// Default type markers stored in data_type_string
const (
	LegacyMarker = "ezxmltext"
	TargetMarker = "ezrichtext"
)

// Markers holds the stored type tags identifying the old and the new format
type Markers struct {
	Legacy string
	Target string
}

// DefaultMarkers returns the ezxmltext -> ezrichtext markers
func DefaultMarkers() Markers {
	return Markers{Legacy: LegacyMarker, Target: TargetMarker}
}

// Table identifies one of the two migrated tables
type Table int

const (
	Definitions Table = iota
	Records
)

func (t Table) String() string {
	switch t {
	case Definitions:
		return "field definitions"
	case Records:
		return "field rows"
	default:
		return fmt.Sprintf("table(%d)", int(t))
	}
}

// Key is the composite primary key shared by both tables
type Key struct {
	ID      int64
	Version int64
}

// Less orders keys by id, then version
func (k Key) Less(o Key) bool {
	if k.ID != o.ID {
		return k.ID < o.ID
	}
	return k.Version < o.Version
}

func (k Key) String() string {
	return fmt.Sprintf("#%d (version %d)", k.ID, k.Version)
}

// Definition represents one content type attribute (ezcontentclass_attribute)
type Definition struct {
	Key
	ContentTypeID int64
	TypeMarker    string
	AuxiliaryData *string // data_text2, cleared on conversion
}

// Record represents one stored field value (ezcontentobject_attribute)
type Record struct {
	Key
	DefinitionID int64
	TypeMarker   string
	RawValue     string // empty when the column is empty or NULL
}

// Scope restricts a migration to a set of content type ids.
// An empty scope selects every legacy row.
type Scope struct {
	ContentTypeIDs []int64
}

// NewScope builds a scope from ids, dropping duplicates
func NewScope(ids ...int64) Scope {
	if len(ids) == 0 {
		return Scope{}
	}
	seen := make(map[int64]bool, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })
	return Scope{ContentTypeIDs: unique}
}

// IsEmpty reports whether no content type filter applies
func (s Scope) IsEmpty() bool {
	return len(s.ContentTypeIDs) == 0
}

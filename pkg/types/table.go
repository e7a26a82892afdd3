package types

import "errors"

// Table provides uniform CRUD operations for a single entity type.
// Get, Update and Fetch return any; callers type-assert to *NPC or *Item.
type Table interface {
	// Create stores a new record and returns its id. The id is one greater
	// than the highest id the table has ever assigned; ids are never reused.
	// The passed record receives the assigned ID and CreatedAt.
	Create(data any) (int64, error)

	// Get retrieves the record with the given id.
	// Returns ErrNotFound if no record exists with that id.
	Get(id int64) (any, error)

	// Update merges the non-nil fields of patch into the record, stamps
	// UpdatedAt, persists, and returns the updated record.
	// Returns ErrNotFound if no record exists with that id.
	Update(id int64, patch any) (any, error)

	// Delete removes the record with the given id. References to it from
	// other tables are left in place.
	// Returns ErrNotFound if no record exists with that id.
	Delete(id int64) error

	// Fetch returns all records matching the filter in insertion order. A nil
	// or empty filter returns every record in the table.
	Fetch(filter Filter) ([]any, error)
}

// Filter selects records by exact equality on named string fields
// (for example {"role": "Enemigo"}). All entries must match.
type Filter map[string]any

// Record is implemented by every entity stored in a Table.
type Record interface {
	// RecordID returns the table-assigned id, or 0 before creation.
	RecordID() int64

	// Owner returns the creator identity, or "" for ownerless records.
	Owner() string

	// Field returns the string value of a named field and whether the
	// field exists in the schema.
	Field(name string) (string, bool)
}

// Matches reports whether rec satisfies every entry of f.
// Returns ErrInvalidFilter for unknown fields or non-string values.
func (f Filter) Matches(rec Record) (bool, error) {
	for field, want := range f {
		s, ok := want.(string)
		if !ok {
			return false, ErrInvalidFilter
		}
		got, ok := rec.Field(field)
		if !ok {
			return false, ErrInvalidFilter
		}
		if got != s {
			return false, nil
		}
	}
	return true, nil
}

// Table operation errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrInvalidID     = errors.New("invalid record id")
	ErrInvalidData   = errors.New("invalid record data")
	ErrInvalidFilter = errors.New("invalid filter")
)

// Entity validation errors.
var (
	ErrInvalidName    = errors.New("invalid name")
	ErrDuplicateName  = errors.New("name already exists")
	ErrAlreadyStocked = errors.New("item already in inventory")
	ErrNotStocked     = errors.New("item not in inventory")
)

// Package registry defines the fixed-schema registry record and the
// canonicalization applied to each of its fields.
//
// A Record is built once from eleven raw values in canonical order (or from a
// name-keyed map resolved through the same order). Every value is normalized
// at assignment time, never lazily on read, and storage is unexported so no
// caller can bypass the rules.
package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFieldCount is returned when positional construction gets the wrong
	// number of values.
	ErrFieldCount = errors.New("wrong number of fields")

	// ErrUnknownField is returned when a field name does not resolve to a
	// position in the canonical order.
	ErrUnknownField = errors.New("unknown field")

	// ErrDuplicateField is returned when two names in a map resolve to the
	// same field, such as a legacy alias and its canonical name.
	ErrDuplicateField = errors.New("duplicate field")
)

// Record is one normalized registry entry.
type Record struct {
	values [FieldCount]string
}

// New builds a record from exactly FieldCount positional values.
func New(values ...string) (*Record, error) {
	if len(values) != FieldCount {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFieldCount, len(values), FieldCount)
	}
	r := &Record{}
	for i, v := range values {
		r.Set(Field(i), v)
	}
	return r, nil
}

// FromMap builds a record from name-keyed values.
// Names missing from the map are assigned the empty string.
func FromMap(values map[string]string) (*Record, error) {
	positional := make([]string, FieldCount)
	var setBy [FieldCount]string
	for name, v := range values {
		f, err := ParseField(name)
		if err != nil {
			return nil, err
		}
		if prev := setBy[f]; prev != "" {
			a, b := prev, name
			if b < a {
				a, b = b, a
			}
			return nil, fmt.Errorf("%w: %s given as %q and %q", ErrDuplicateField, f, a, b)
		}
		setBy[f] = name
		positional[f] = v
	}
	return New(positional...)
}

// Set normalizes value with the field's rule and stores it.
// Setting an unknown field is a no-op.
func (r *Record) Set(f Field, value string) {
	if !f.Valid() {
		return
	}
	r.values[f] = Normalize(f, value)
}

// Get returns the stored (normalized) value of f.
func (r *Record) Get(f Field) string {
	if !f.Valid() {
		return ""
	}
	return r.values[f]
}

// Values returns the field values in canonical order.
func (r *Record) Values() []string {
	out := make([]string, FieldCount)
	copy(out, r.values[:])
	return out
}

// Map returns the field values keyed by wire name.
func (r *Record) Map() map[string]string {
	out := make(map[string]string, FieldCount)
	for i, v := range r.values {
		out[fieldNames[i]] = v
	}
	return out
}

// IsValid reports whether every field required by p is non-empty.
func (r *Record) IsValid(p Policy) bool {
	return len(r.Missing(p)) == 0
}

// Missing returns the fields required by p that are empty, in canonical order.
func (r *Record) Missing(p Policy) []Field {
	var missing []Field
	for _, f := range p.Fields() {
		if r.values[f] == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// String renders the record as quoted, tab-separated values for logs.
func (r *Record) String() string {
	quoted := make([]string, FieldCount)
	for i, v := range r.values {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, "\t")
}

package registry

import (
	"fmt"
	"strings"
)

// Field identifies one column of a registry record.
// The numeric value is the field's position in the canonical order, which is
// the wire contract with the file reader and writer.
type Field int

const (
	IdentityNumber Field = iota
	FirstName
	LastName
	CareOf
	StreetAddress
	PostalCode
	City
	Country
	Phone
	Email
	Program

	// FieldCount is the number of fields in a record.
	FieldCount = int(Program) + 1
)

// fieldNames maps each Field to its wire name. Indexed by position.
var fieldNames = [FieldCount]string{
	IdentityNumber: "identity_number",
	FirstName:      "first_name",
	LastName:       "last_name",
	CareOf:         "care_of",
	StreetAddress:  "street_address",
	PostalCode:     "postal_code",
	City:           "city",
	Country:        "country",
	Phone:          "phone",
	Email:          "email",
	Program:        "program",
}

// fieldByName is the reverse lookup used for name-keyed construction.
// Legacy column names from older registry exports resolve to the same fields.
var fieldByName = map[string]Field{
	"ssn":       IdentityNumber,
	"firstname": FirstName,
	"lastname":  LastName,
	"co":        CareOf,
	"address":   StreetAddress,
	"zip_code":  PostalCode,
}

func init() {
	for i, name := range fieldNames {
		fieldByName[name] = Field(i)
	}
}

// String returns the wire name of the field.
func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the defined fields.
func (f Field) Valid() bool {
	return f >= 0 && int(f) < FieldCount
}

// Rule returns the normalization rule applied when f is assigned.
func (f Field) Rule() Rule {
	if !f.Valid() {
		return RuleVerbatim
	}
	return fieldRules[f]
}

// ParseField resolves a field name to its Field.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseField(name string) (Field, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if f, ok := fieldByName[key]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Fields returns every field in canonical order.
func Fields() []Field {
	out := make([]Field, FieldCount)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

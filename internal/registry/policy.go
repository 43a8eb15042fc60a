package registry

import "strings"

// Policy is the set of fields that must be non-empty for a record to be
// valid. The zero value requires nothing.
type Policy struct {
	required [FieldCount]bool
}

// DefaultPolicy accepts every record.
var DefaultPolicy = Policy{}

// RequireFields returns a policy requiring the given fields.
func RequireFields(fields ...Field) Policy {
	var p Policy
	for _, f := range fields {
		if f.Valid() {
			p.required[f] = true
		}
	}
	return p
}

// ParsePolicy builds a policy from field names, e.g. from REQUIRED_FIELDS.
func ParsePolicy(names []string) (Policy, error) {
	var p Policy
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		f, err := ParseField(name)
		if err != nil {
			return Policy{}, err
		}
		p.required[f] = true
	}
	return p, nil
}

// Requires reports whether f is required.
func (p Policy) Requires(f Field) bool {
	return f.Valid() && p.required[f]
}

// Fields returns the required fields in canonical order.
func (p Policy) Fields() []Field {
	var out []Field
	for i, req := range p.required {
		if req {
			out = append(out, Field(i))
		}
	}
	return out
}

// Empty reports whether the policy requires no fields.
func (p Policy) Empty() bool {
	return len(p.Fields()) == 0
}

package registry

// rules.go holds the per-field canonicalization rules.
//
// Every rule is total: it accepts any string (including the empty string) and
// never fails. Rules are projections, so applying one twice gives the same
// result as applying it once.

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IdentityNumberAlphabet lists the characters kept in an identity number.
// Everything else is stripped before truncation and padding.
const IdentityNumberAlphabet = "*0123456789T"

// IdentityNumberLength is the fixed width of a normalized identity number.
const IdentityNumberLength = 10

// PostalCodeMaxLength is the number of trailing digits kept from a postal code.
const PostalCodeMaxLength = 5

// Rule is a canonicalization applied to a field value on assignment.
type Rule int

const (
	RuleVerbatim Rule = iota
	RuleUpper
	RuleLower
	RuleIdentityNumber
	RulePostalCode
)

var ruleNames = map[Rule]string{
	RuleVerbatim:       "verbatim",
	RuleUpper:          "upper",
	RuleLower:          "lower",
	RuleIdentityNumber: "identity_number",
	RulePostalCode:     "postal_code",
}

func (r Rule) String() string {
	if name, ok := ruleNames[r]; ok {
		return name
	}
	return "unknown"
}

// fieldRules is the declarative rule table, indexed by field position.
var fieldRules = [FieldCount]Rule{
	IdentityNumber: RuleIdentityNumber,
	FirstName:      RuleUpper,
	LastName:       RuleUpper,
	CareOf:         RuleUpper,
	StreetAddress:  RuleUpper,
	PostalCode:     RulePostalCode,
	City:           RuleUpper,
	Country:        RuleUpper,
	Phone:          RuleVerbatim,
	Email:          RuleLower,
	Program:        RuleUpper,
}

// Apply runs the rule over value.
func (r Rule) Apply(value string) string {
	switch r {
	case RuleUpper:
		// Casers carry state, so each call gets its own.
		return cases.Upper(language.Und).String(value)
	case RuleLower:
		return cases.Lower(language.Und).String(value)
	case RuleIdentityNumber:
		return NormalizeIdentityNumber(value)
	case RulePostalCode:
		return NormalizePostalCode(value)
	default:
		return value
	}
}

// Normalize applies the rule registered for f to value.
func Normalize(f Field, value string) string {
	return f.Rule().Apply(value)
}

// NormalizeIdentityNumber keeps only characters from IdentityNumberAlphabet,
// takes the last ten of them, and fills with '0' after the kept characters
// up to a width of ten.
//
//	"19170101-9999" -> "1701019999"
//	"170101-090"    -> "1701010900"
//	"-"             -> "0000000000"
func NormalizeIdentityNumber(value string) string {
	kept := strings.Map(func(r rune) rune {
		if strings.ContainsRune(IdentityNumberAlphabet, r) {
			return r
		}
		return -1
	}, value)

	// kept is ASCII-only here, so byte slicing is safe.
	if len(kept) > IdentityNumberLength {
		kept = kept[len(kept)-IdentityNumberLength:]
	}
	if pad := IdentityNumberLength - len(kept); pad > 0 {
		kept += strings.Repeat("0", pad)
	}
	return kept
}

// NormalizePostalCode strips every non-digit and keeps the last five digits.
// Shorter results are returned as-is.
func NormalizePostalCode(value string) string {
	digits := strings.Map(func(r rune) rune {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			return r
		}
		return -1
	}, value)

	if len(digits) > PostalCodeMaxLength {
		digits = digits[len(digits)-PostalCodeMaxLength:]
	}
	return digits
}

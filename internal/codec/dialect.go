package codec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ErrNeedsQuoting is returned when QuoteNone is in effect and a field
// contains a delimiter, quote or line break.
var ErrNeedsQuoting = errors.New("field needs quoting but quoting is disabled")

// numericRegex matches plain decimal numbers for QuoteNonNumeric.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// Quoting controls which output fields are wrapped in quote characters.
type Quoting int

const (
	// QuoteMinimal quotes only fields containing special characters.
	QuoteMinimal Quoting = iota
	// QuoteAll quotes every field.
	QuoteAll
	// QuoteNonNumeric quotes every field that is not a plain number.
	QuoteNonNumeric
	// QuoteNone never quotes; fields needing quotes are an error.
	QuoteNone
)

var quotingNames = map[Quoting]string{
	QuoteMinimal:    "minimal",
	QuoteAll:        "all",
	QuoteNonNumeric: "nonnumeric",
	QuoteNone:       "none",
}

func (q Quoting) String() string {
	if name, ok := quotingNames[q]; ok {
		return name
	}
	return "unknown"
}

// ParseQuoting parses a quoting mode name such as "all" or "minimal".
func ParseQuoting(s string) (Quoting, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimPrefix(key, "quote_")
	for q, name := range quotingNames {
		if name == key {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quoting mode %q (want all, minimal, nonnumeric or none)", s)
}

// ParseDelimiter parses a delimiter setting. Accepts a single character or
// one of the names "tab", "comma", "semicolon", "pipe".
func ParseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "comma", ",":
		return ',', nil
	case "semicolon", ";":
		return ';', nil
	case "pipe", "|":
		return '|', nil
	}
	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		if r != '"' && r != '\r' && r != '\n' {
			return r, nil
		}
	}
	return 0, fmt.Errorf("invalid delimiter %q", s)
}

// ParseLineTerminator parses "crlf" or "lf".
func ParseLineTerminator(s string) (string, error) {
	switch strings.ToLower(s) {
	case "crlf", `\r\n`, "\r\n":
		return "\r\n", nil
	case "lf", `\n`, "\n":
		return "\n", nil
	}
	return "", fmt.Errorf("invalid line terminator %q (want crlf or lf)", s)
}

// Dialect describes a delimited-file flavour.
type Dialect struct {
	Delimiter      rune
	Quote          rune
	Quoting        Quoting
	LineTerminator string
}

// ExcelTab is the tab-separated dialect Excel reads and writes, with every
// field quoted on output.
var ExcelTab = Dialect{
	Delimiter:      '\t',
	Quote:          '"',
	Quoting:        QuoteAll,
	LineTerminator: "\r\n",
}

// NewReader returns a reader for the dialect. Quotes are handled leniently
// and rows may have any number of fields; width checks belong to the caller.
func (d Dialect) NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = d.Delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

// FormatRow renders fields as one line, including the line terminator.
func (d Dialect) FormatRow(fields []string) (string, error) {
	quote := string(d.Quote)
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteRune(d.Delimiter)
		}

		special := d.needsQuotes(f)
		var quoted bool
		switch d.Quoting {
		case QuoteAll:
			quoted = true
		case QuoteNonNumeric:
			quoted = special || !numericRegex.MatchString(f)
		case QuoteNone:
			if special {
				return "", fmt.Errorf("%w: field %d %q", ErrNeedsQuoting, i, f)
			}
		default:
			quoted = special
		}

		if !quoted {
			b.WriteString(f)
			continue
		}
		b.WriteString(quote)
		b.WriteString(strings.ReplaceAll(f, quote, quote+quote))
		b.WriteString(quote)
	}
	b.WriteString(d.LineTerminator)
	return b.String(), nil
}

func (d Dialect) needsQuotes(f string) bool {
	return strings.ContainsRune(f, d.Delimiter) ||
		strings.ContainsRune(f, d.Quote) ||
		strings.ContainsAny(f, "\r\n")
}

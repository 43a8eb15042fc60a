// Package codec turns raw registry files into rows of strings and back.
//
// It owns everything the record normalizer deliberately does not: character
// encodings, byte-order marks, delimited-file dialects and quoting. Decoding
// and encoding are backed by golang.org/x/text.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnknownEncoding is returned by Lookup for unsupported encoding names.
var ErrUnknownEncoding = errors.New("unknown encoding")

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Encoding is a named character encoding.
//
// Decoding and encoding are configured separately: decoders honour a
// byte-order mark when the encoding allows one, while encoders never emit
// one on their own. The mark is written once per file from BOM instead, so
// rows can be encoded independently.
type Encoding struct {
	name   string
	decode encoding.Encoding
	encode encoding.Encoding
	bom    []byte
}

var encodings = map[string]Encoding{
	"utf-8": {
		name:   "utf-8",
		decode: unicode.UTF8,
		encode: unicode.UTF8,
	},
	"utf-8-sig": {
		name:   "utf-8-sig",
		decode: unicode.UTF8BOM,
		encode: unicode.UTF8,
		bom:    bomUTF8,
	},
	// Detects the byte order from the BOM, falling back to little-endian
	// which is what Excel writes.
	"utf-16": {
		name:   "utf-16",
		decode: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
		encode: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		bom:    bomUTF16LE,
	},
	"utf-16le": {
		name:   "utf-16le",
		decode: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		encode: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
		bom:    bomUTF16LE,
	},
	"utf-16be": {
		name:   "utf-16be",
		decode: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
		encode: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
		bom:    bomUTF16BE,
	},
	"latin-1": {
		name:   "latin-1",
		decode: charmap.ISO8859_1,
		encode: charmap.ISO8859_1,
	},
	"iso-8859-15": {
		name:   "iso-8859-15",
		decode: charmap.ISO8859_15,
		encode: charmap.ISO8859_15,
	},
	"windows-1252": {
		name:   "windows-1252",
		decode: charmap.Windows1252,
		encode: charmap.Windows1252,
	},
}

var aliases = map[string]string{
	"utf8":       "utf-8",
	"utf-8-bom":  "utf-8-sig",
	"utf16":      "utf-16",
	"utf-16-le":  "utf-16le",
	"utf-16-be":  "utf-16be",
	"latin1":     "latin-1",
	"l1":         "latin-1",
	"iso-8859-1": "latin-1",
	"iso8859-1":  "latin-1",
	"latin-9":    "iso-8859-15",
	"cp1252":     "windows-1252",
}

// Lookup returns the encoding registered under name.
// Names are case-insensitive and treat '_' and '-' alike.
func Lookup(name string) (Encoding, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
	if canonical, ok := aliases[key]; ok {
		key = canonical
	}
	e, ok := encodings[key]
	if !ok {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return e, nil
}

// Names lists the canonical encoding names, sorted.
func Names() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the canonical name of the encoding.
func (e Encoding) Name() string { return e.name }

// BOM returns the byte-order mark written at the start of an output file,
// or nil if the encoding has none.
func (e Encoding) BOM() []byte {
	if len(e.bom) == 0 {
		return nil
	}
	out := make([]byte, len(e.bom))
	copy(out, e.bom)
	return out
}

// NewDecoder returns a decoder producing UTF-8.
func (e Encoding) NewDecoder() *encoding.Decoder {
	return e.decode.NewDecoder()
}

// NewEncoder returns an encoder from UTF-8. When replace is set, runes the
// encoding cannot represent are substituted instead of failing.
func (e Encoding) NewEncoder(replace bool) *encoding.Encoder {
	enc := e.encode.NewEncoder()
	if replace {
		return encoding.ReplaceUnsupported(enc)
	}
	return enc
}

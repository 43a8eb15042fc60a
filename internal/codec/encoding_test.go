package codec

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"utf-16", "utf-16"},
		{"UTF_16LE", "utf-16le"},
		{"utf-16-be", "utf-16be"},
		{"Latin-1", "latin-1"},
		{"iso-8859-1", "latin-1"},
		{"latin1", "latin-1"},
		{"cp1252", "windows-1252"},
		{" utf8 ", "utf-8"},
		{"utf-8-sig", "utf-8-sig"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			enc, err := Lookup(tt.input)
			if err != nil {
				t.Fatalf("Lookup(%q) error = %v", tt.input, err)
			}
			if enc.Name() != tt.want {
				t.Errorf("Lookup(%q).Name() = %q, want %q", tt.input, enc.Name(), tt.want)
			}
		})
	}
}

func TestLookup_Unknown(t *testing.T) {
	_, err := Lookup("ebcdic")
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("Lookup(ebcdic) error = %v, want ErrUnknownEncoding", err)
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) == 0 {
		t.Fatal("Names() returned nothing")
	}
	for _, name := range names {
		if _, err := Lookup(name); err != nil {
			t.Errorf("Lookup(%q) error = %v", name, err)
		}
	}
}

func TestEncoding_BOM(t *testing.T) {
	tests := []struct {
		name string
		want []byte
	}{
		{"utf-16le", []byte{0xFF, 0xFE}},
		{"utf-16be", []byte{0xFE, 0xFF}},
		{"utf-16", []byte{0xFF, 0xFE}},
		{"utf-8-sig", []byte{0xEF, 0xBB, 0xBF}},
		{"utf-8", nil},
		{"latin-1", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Lookup(tt.name)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			if got := enc.BOM(); !bytes.Equal(got, tt.want) {
				t.Errorf("BOM() = % x, want % x", got, tt.want)
			}
		})
	}
}

func utf16le(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}

func utf16be(s string) []byte {
	var out []byte
	for _, r := range s {
		out = append(out, byte(r>>8), byte(r))
	}
	return out
}

func TestDecodingReader(t *testing.T) {
	const text = "ssn\tnamn\nÅsa\tÖrjan\n"

	tests := []struct {
		name     string
		encoding string
		input    []byte
	}{
		{"utf-16 with LE BOM", "utf-16", append([]byte{0xFF, 0xFE}, utf16le(text)...)},
		{"utf-16 with BE BOM", "utf-16", append([]byte{0xFE, 0xFF}, utf16be(text)...)},
		{"utf-16 without BOM", "utf-16", utf16le(text)},
		{"utf-16le with BOM", "utf-16le", append([]byte{0xFF, 0xFE}, utf16le(text)...)},
		{"utf-8 with BOM", "utf-8", append([]byte{0xEF, 0xBB, 0xBF}, text...)},
		{"utf-8 plain", "utf-8", []byte(text)},
		{"latin-1", "latin-1", []byte("ssn\tnamn\n\xc5sa\t\xd6rjan\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Lookup(tt.encoding)
			if err != nil {
				t.Fatalf("Lookup() error = %v", err)
			}
			reader := NewDecodingReader(bytes.NewReader(tt.input), enc, int64(len(tt.input)))
			got, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if string(got) != text {
				t.Errorf("decoded = %q, want %q", got, text)
			}
			if reader.BytesRead() != int64(len(tt.input)) {
				t.Errorf("BytesRead() = %d, want %d", reader.BytesRead(), len(tt.input))
			}
			if reader.Progress() != 100 {
				t.Errorf("Progress() = %d, want 100", reader.Progress())
			}
		})
	}
}

func TestDecodingReader_InvalidUTF8Replaced(t *testing.T) {
	enc, err := Lookup("utf-8")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	input := []byte{'h', 'e', 0x80, 'l', 'o'}
	got, err := io.ReadAll(NewDecodingReader(bytes.NewReader(input), enc, 0))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "he�lo" {
		t.Errorf("decoded = %q, want %q", got, "he�lo")
	}
}

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello\tworld")...), "hello\tworld"},
		{"file without BOM", []byte("hello\tworld"), "hello\tworld"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"short file", []byte("ab"), "ab"},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a', 'b', 'c'}, string([]byte{0xEF, 0xBB, 'a', 'b', 'c'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewBOMSkippingReader(bytes.NewReader(tt.input))
			result, err := io.ReadAll(reader)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := NewCountingReader(strings.NewReader(input), int64(len(input)))

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) {
		t.Errorf("total read = %d, want %d", totalRead, len(input))
	}
	if reader.BytesRead != int64(len(input)) {
		t.Errorf("BytesRead = %d, want %d", reader.BytesRead, len(input))
	}
	if reader.Progress() != 100 {
		t.Errorf("Progress = %d, want 100", reader.Progress())
	}

	unknown := NewCountingReader(strings.NewReader(input), 0)
	if unknown.Progress() != 0 {
		t.Errorf("Progress with unknown total = %d, want 0", unknown.Progress())
	}
}

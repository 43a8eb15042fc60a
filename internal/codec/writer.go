package codec

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
)

// ErrUnencodable is returned when a row contains characters the output
// encoding cannot represent and replacement is disabled.
var ErrUnencodable = errors.New("encoding error")

// RowWriter formats rows with a dialect and writes them in an encoding.
//
// Each row is rendered and encoded in full before any byte reaches the
// underlying writer, so a row that fails leaves no partial output behind.
type RowWriter struct {
	w       io.Writer
	dialect Dialect
	enc     *encoding.Encoder
	bom     []byte
	written int64
}

// NewRowWriter creates a RowWriter. When replace is set, characters the
// encoding cannot represent are substituted instead of failing the row.
func NewRowWriter(w io.Writer, d Dialect, e Encoding, replace bool) *RowWriter {
	return &RowWriter{
		w:       w,
		dialect: d,
		enc:     e.NewEncoder(replace),
		bom:     e.BOM(),
	}
}

// WriteBOM writes the encoding's byte-order mark, if it has one.
// Call it once, before the first row.
func (rw *RowWriter) WriteBOM() error {
	if len(rw.bom) == 0 {
		return nil
	}
	n, err := rw.w.Write(rw.bom)
	rw.written += int64(n)
	if err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	return nil
}

// EncodeRow renders and encodes fields without writing them.
// Errors wrap ErrNeedsQuoting or ErrUnencodable.
func (rw *RowWriter) EncodeRow(fields []string) ([]byte, error) {
	line, err := rw.dialect.FormatRow(fields)
	if err != nil {
		return nil, err
	}
	out, err := rw.enc.Bytes([]byte(line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnencodable, err)
	}
	return out, nil
}

// WriteRow encodes fields and writes them as one line.
func (rw *RowWriter) WriteRow(fields []string) error {
	out, err := rw.EncodeRow(fields)
	if err != nil {
		return err
	}
	n, err := rw.w.Write(out)
	rw.written += int64(n)
	if err != nil {
		return fmt.Errorf("write row: %w", err)
	}
	return nil
}

// BytesWritten returns the number of encoded bytes written so far.
func (rw *RowWriter) BytesWritten() int64 {
	return rw.written
}

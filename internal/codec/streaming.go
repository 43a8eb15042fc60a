package codec

// streaming.go provides the reader chain used to decode registry files.
//
// The readers never hold more than a read buffer of the file:
//
//   - CountingReader: tracks raw bytes read for progress reporting
//   - x/text transform: decodes the source encoding into UTF-8
//   - BOMSkippingReader: drops a UTF-8 BOM left behind by the decoder
//
// Use NewDecodingReader to assemble the chain in the right order.

import (
	"bytes"
	"io"

	"golang.org/x/text/transform"
)

// BOMSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM.
// Decoders that ignore byte-order marks turn U+FEFF into these three bytes.
type BOMSkippingReader struct {
	reader     io.Reader
	bomChecked bool
	pending    []byte
}

// NewBOMSkippingReader creates a new BOM-skipping reader.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{reader: r}
}

// Read implements io.Reader. On the first read it checks for and skips the BOM.
func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.bomChecked {
		r.bomChecked = true

		var buf [3]byte
		n, err := io.ReadFull(r.reader, buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if err != nil && err != io.EOF {
			return 0, err
		}

		if n == 3 && bytes.Equal(buf[:], bomUTF8) {
			r.pending = nil
		} else {
			r.pending = append([]byte(nil), buf[:n]...)
		}

		if err == io.EOF && len(r.pending) == 0 {
			return 0, io.EOF
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}

// CountingReader wraps an io.Reader to track bytes read.
type CountingReader struct {
	reader    io.Reader
	BytesRead int64
	Total     int64 // 0 if unknown
}

// NewCountingReader creates a counting reader with optional total size.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{reader: r, Total: total}
}

// Read implements io.Reader.
func (r *CountingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (r *CountingReader) Progress() int {
	if r.Total <= 0 {
		return 0
	}
	return int(r.BytesRead * 100 / r.Total)
}

// DecodingReader yields UTF-8 text decoded from a source encoding while
// counting the raw bytes consumed.
type DecodingReader struct {
	counter *CountingReader
	reader  io.Reader
}

// NewDecodingReader wraps r, which holds text in enc, so that reads return
// UTF-8. total is the raw size if known, for progress reporting.
//
// The order matters:
// 1. Counting sees raw bytes so progress matches the file size
// 2. Decoding converts to UTF-8 (and consumes a BOM when enc allows one)
// 3. BOM skipping removes any mark the decoder passed through
func NewDecodingReader(r io.Reader, enc Encoding, total int64) *DecodingReader {
	counter := NewCountingReader(r, total)
	decoded := transform.NewReader(counter, enc.NewDecoder())
	return &DecodingReader{
		counter: counter,
		reader:  NewBOMSkippingReader(decoded),
	}
}

// Read implements io.Reader.
func (d *DecodingReader) Read(p []byte) (int, error) {
	return d.reader.Read(p)
}

// BytesRead returns the number of raw (undecoded) bytes consumed so far.
func (d *DecodingReader) BytesRead() int64 {
	return d.counter.BytesRead
}

// Progress returns the read progress as a percentage (0-100).
func (d *DecodingReader) Progress() int {
	return d.counter.Progress()
}

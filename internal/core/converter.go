package core

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/logging"
	"github.com/JonMunkholm/regconv/internal/registry"
)

// ContextCheckInterval is how often (in records) to check for cancellation.
var ContextCheckInterval = 100

// ProgressInterval is how often (in records) the progress callback fires.
var ProgressInterval = 1000

// ErrEmptyInput is returned when the input holds no records at all.
var ErrEmptyInput = errors.New("empty file")

// Converter turns registry export files into the normalized output format.
// A Converter is safe for concurrent use; each Convert call keeps its own state.
type Converter struct {
	opts     Options
	sink     Sink
	progress ProgressCallback
}

// NewConverter creates a Converter with the given options.
func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts}
}

// WithSink returns a copy of the converter that hands every written record
// to sink.
func (c *Converter) WithSink(sink Sink) *Converter {
	cp := *c
	cp.sink = sink
	return &cp
}

// OnProgress returns a copy of the converter that reports progress to fn.
func (c *Converter) OnProgress(fn ProgressCallback) *Converter {
	cp := *c
	cp.progress = fn
	return &cp
}

// Options returns the converter's options.
func (c *Converter) Options() Options {
	return c.opts
}

// run holds the per-call state of one conversion.
type run struct {
	c        *Converter
	result   *ConversionResult
	progress ConversionProgress
	src      *codec.DecodingReader
}

func (r *run) notify(phase Phase) {
	if r.c.progress == nil {
		return
	}
	r.progress.Phase = phase
	r.progress.Converted = r.result.Converted
	r.progress.Skipped = r.result.Skipped
	r.progress.BytesRead = r.src.BytesRead()
	r.progress.Error = r.result.Error
	r.c.progress(r.progress)
}

func (r *run) fail(line int, reason string, data []string) {
	r.result.Skipped++
	if len(r.result.FailedRows) >= MaxFailedRows {
		return
	}
	r.result.FailedRows = append(r.result.FailedRows, FailedRow{
		LineNumber: line,
		Reason:     reason,
		Data:       append([]string(nil), data...),
	})
}

// Convert reads in, normalizes every data record and writes it to out.
//
// Rows that cannot be converted are skipped and reported in the result;
// they never abort the run. Read, write and sink failures do, as does
// cancellation of ctx. The result is returned in every case.
func (c *Converter) Convert(ctx context.Context, in Input, out io.Writer) (*ConversionResult, error) {
	result := &ConversionResult{
		RunID:          uuid.New().String(),
		FileName:       in.Name,
		InputEncoding:  c.opts.InputEncoding.Name(),
		OutputEncoding: c.opts.OutputEncoding.Name(),
		StartedAt:      time.Now(),
	}

	logger := logging.WithFields(ctx,
		"run_id", result.RunID,
		"file", in.Name,
	)

	r := &run{
		c:      c,
		result: result,
		src:    codec.NewDecodingReader(in.Reader, c.opts.InputEncoding, in.Size),
		progress: ConversionProgress{
			RunID:      result.RunID,
			FileName:   in.Name,
			BytesTotal: in.Size,
		},
	}
	r.notify(PhaseStarting)

	if c.sink != nil {
		if err := c.sink.Begin(ctx, result); err != nil {
			return r.finish(ctx, logger, fmt.Errorf("begin sink: %w", err), false)
		}
	}

	bw := bufio.NewWriter(out)
	w := codec.NewRowWriter(bw, c.opts.OutputDialect, c.opts.OutputEncoding, c.opts.ReplaceUnsupported)

	err := r.convertRows(ctx, w)
	if err == nil {
		if ferr := bw.Flush(); ferr != nil {
			err = fmt.Errorf("write output: %w", ferr)
		}
	}
	result.BytesWritten = w.BytesWritten()

	return r.finish(ctx, logger, err, c.sink != nil)
}

func (r *run) convertRows(ctx context.Context, w *codec.RowWriter) error {
	opts := r.c.opts

	if err := w.WriteBOM(); err != nil {
		return err
	}

	reader := opts.InputDialect.NewReader(r.src)
	r.notify(PhaseConverting)

	records := 0
	for {
		if records%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("invalid csv: %w", err)
		}
		records++

		if records <= opts.SkipRows {
			continue
		}
		if isBlankRow(row) {
			continue
		}

		line, _ := reader.FieldPos(0)
		r.result.TotalRows++
		r.progress.CurrentRow = r.result.TotalRows

		if err := r.convertRow(ctx, w, line, row); err != nil {
			return err
		}

		if r.result.TotalRows%ProgressInterval == 0 {
			r.notify(PhaseConverting)
		}
	}

	if records == 0 {
		return ErrEmptyInput
	}
	return nil
}

// convertRow writes one data row. Only errors that must abort the run are
// returned; row problems are recorded on the result.
func (r *run) convertRow(ctx context.Context, w *codec.RowWriter, line int, row []string) error {
	opts := r.c.opts

	if len(row) < registry.FieldCount {
		r.fail(line, fmt.Sprintf("expected %d fields, got %d", registry.FieldCount, len(row)), row)
		return nil
	}
	if len(row) > registry.FieldCount {
		r.result.Truncated++
	}

	rec, err := registry.New(row[:registry.FieldCount]...)
	if err != nil {
		r.fail(line, err.Error(), row)
		return nil
	}

	if missing := rec.Missing(opts.Policy); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, f := range missing {
			names[i] = f.String()
		}
		r.fail(line, "empty required field: "+strings.Join(names, ", "), row)
		return nil
	}

	if err := w.WriteRow(rec.Values()); err != nil {
		if errors.Is(err, codec.ErrNeedsQuoting) || errors.Is(err, codec.ErrUnencodable) {
			r.fail(line, err.Error(), row)
			return nil
		}
		return err
	}
	r.result.Converted++

	if r.c.sink != nil {
		if err := r.c.sink.Add(ctx, line, rec); err != nil {
			return fmt.Errorf("sink line %d: %w", line, err)
		}
	}
	return nil
}

// finish fills in the final totals, closes the sink and reports the outcome.
func (r *run) finish(ctx context.Context, logger *slog.Logger, err error, closeSink bool) (*ConversionResult, error) {
	result := r.result
	result.BytesRead = r.src.BytesRead()
	result.Duration = time.Since(result.StartedAt)

	phase := PhaseComplete
	if err != nil {
		result.Error = err.Error()
		phase = PhaseFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			phase = PhaseCancelled
		}
	}

	if closeSink {
		// The sink records the outcome even when ctx is already cancelled.
		if serr := r.c.sink.Finish(context.WithoutCancel(ctx), result); serr != nil {
			if err == nil {
				err = fmt.Errorf("finish sink: %w", serr)
				result.Error = err.Error()
				phase = PhaseFailed
			} else {
				logger.Warn("sink finish failed", "error", serr)
			}
		}
	}

	r.notify(phase)

	switch phase {
	case PhaseComplete:
		logger.Info("conversion complete",
			"converted", result.Converted,
			"skipped", result.Skipped,
			"truncated", result.Truncated,
			"duration_ms", result.Duration.Milliseconds(),
		)
	case PhaseCancelled:
		logger.Warn("conversion cancelled", "converted", result.Converted)
	default:
		logger.Error("conversion failed", "error", err, "converted", result.Converted)
	}

	return result, err
}

// isBlankRow reports a line with no delimiters and no content. A row of
// empty cells is a record and goes through the policy like any other.
func isBlankRow(row []string) bool {
	return len(row) == 1 && strings.TrimSpace(row[0]) == ""
}

package core

import (
	"context"
	"io"
	"time"

	"github.com/JonMunkholm/regconv/internal/registry"
)

// MaxFailedRows caps the number of failed rows kept on a result.
// Rows beyond the cap are still counted in Skipped.
const MaxFailedRows = 1000

// Phase indicates the current stage of a conversion.
type Phase string

const (
	PhaseStarting   Phase = "starting"
	PhaseConverting Phase = "converting"
	PhaseComplete   Phase = "complete"
	PhaseFailed     Phase = "failed"
	PhaseCancelled  Phase = "cancelled"
)

// ConversionProgress represents the current state of a conversion.
type ConversionProgress struct {
	RunID      string
	FileName   string
	Phase      Phase
	CurrentRow int
	Converted  int
	Skipped    int
	Error      string // Non-empty if Phase is PhaseFailed or PhaseCancelled
	BytesRead  int64
	BytesTotal int64
}

// Percent returns the progress as a percentage (0-100), based on raw bytes
// consumed. Returns 0 when the input size is unknown.
func (p ConversionProgress) Percent() int {
	if p.Phase == PhaseComplete {
		return 100
	}
	if p.BytesTotal > 0 {
		return int((p.BytesRead * 100) / p.BytesTotal)
	}
	return 0
}

// ProgressCallback is called periodically during a conversion.
type ProgressCallback func(ConversionProgress)

// FailedRow describes an input row that was not written to the output.
type FailedRow struct {
	LineNumber int      `json:"lineNumber"`
	Reason     string   `json:"reason"`
	Data       []string `json:"data"`
}

// ConversionResult contains the outcome of a conversion.
type ConversionResult struct {
	RunID          string        `json:"runId"`
	FileName       string        `json:"fileName"`
	InputEncoding  string        `json:"inputEncoding"`
	OutputEncoding string        `json:"outputEncoding"`
	TotalRows      int           `json:"totalRows"`
	Converted      int           `json:"converted"`
	Skipped        int           `json:"skipped"`
	Truncated      int           `json:"truncated"`
	FailedRows     []FailedRow   `json:"failedRows,omitempty"`
	BytesRead      int64         `json:"bytesRead"`
	BytesWritten   int64         `json:"bytesWritten"`
	StartedAt      time.Time     `json:"startedAt"`
	Duration       time.Duration `json:"duration"`
	Error          string        `json:"error,omitempty"`
}

// Input is a registry file to convert.
type Input struct {
	Name   string
	Reader io.Reader
	Size   int64 // 0 if unknown
}

// Sink receives every record written to the output, in output order.
// A Sink error aborts the conversion.
type Sink interface {
	Begin(ctx context.Context, result *ConversionResult) error
	Add(ctx context.Context, lineNumber int, rec *registry.Record) error
	Finish(ctx context.Context, result *ConversionResult) error
}

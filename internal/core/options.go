package core

import (
	"fmt"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/registry"
)

// Options controls how a registry file is read and written.
type Options struct {
	InputEncoding  codec.Encoding
	OutputEncoding codec.Encoding
	InputDialect   codec.Dialect
	OutputDialect  codec.Dialect

	// SkipRows is the number of leading records discarded as headers.
	SkipRows int

	// Policy lists the fields a record must have to be written.
	Policy registry.Policy

	// ReplaceUnsupported substitutes characters the output encoding cannot
	// represent instead of failing the row.
	ReplaceUnsupported bool
}

// DefaultOptions returns the options for the registry export format:
// UTF-16 in, Latin-1 out, tab separated, every output field quoted and
// three header rows skipped.
func DefaultOptions() Options {
	in, _ := codec.Lookup("utf-16")
	out, _ := codec.Lookup("latin-1")
	return Options{
		InputEncoding:  in,
		OutputEncoding: out,
		InputDialect:   codec.ExcelTab,
		OutputDialect:  codec.ExcelTab,
		SkipRows:       3,
		Policy:         registry.DefaultPolicy,
	}
}

// OptionsFromConfig builds Options from the conversion settings.
func OptionsFromConfig(cfg config.ConvertConfig) (Options, error) {
	in, err := codec.Lookup(cfg.InputEncoding)
	if err != nil {
		return Options{}, fmt.Errorf("input encoding: %w", err)
	}
	out, err := codec.Lookup(cfg.OutputEncoding)
	if err != nil {
		return Options{}, fmt.Errorf("output encoding: %w", err)
	}

	inDelim, err := codec.ParseDelimiter(cfg.InputDelimiter)
	if err != nil {
		return Options{}, fmt.Errorf("input delimiter: %w", err)
	}
	outDelim, err := codec.ParseDelimiter(cfg.OutputDelimiter)
	if err != nil {
		return Options{}, fmt.Errorf("output delimiter: %w", err)
	}
	quoting, err := codec.ParseQuoting(cfg.Quoting)
	if err != nil {
		return Options{}, err
	}
	term, err := codec.ParseLineTerminator(cfg.LineTerminator)
	if err != nil {
		return Options{}, err
	}

	if cfg.SkipRows < 0 {
		return Options{}, fmt.Errorf("skip rows must be non-negative, got %d", cfg.SkipRows)
	}

	policy, err := registry.ParsePolicy(cfg.RequiredFields)
	if err != nil {
		return Options{}, fmt.Errorf("required fields: %w", err)
	}

	inDialect := codec.ExcelTab
	inDialect.Delimiter = inDelim

	return Options{
		InputEncoding:  in,
		OutputEncoding: out,
		InputDialect:   inDialect,
		OutputDialect: codec.Dialect{
			Delimiter:      outDelim,
			Quote:          '"',
			Quoting:        quoting,
			LineTerminator: term,
		},
		SkipRows:           cfg.SkipRows,
		Policy:             policy,
		ReplaceUnsupported: cfg.ReplaceUnsupported,
	}, nil
}

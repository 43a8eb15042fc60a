package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// StdioPath names stdin as an input path and stdout as an output path.
const StdioPath = "-"

// OutputExtension replaces the input file's extension in the default output path.
const OutputExtension = ".txt"

// ErrSameFile is returned when the output path would overwrite the input.
var ErrSameFile = errors.New("output file is the input file")

// DefaultOutputPath derives the output path from the input path by
// replacing its extension with .txt ("export.csv" becomes "export.txt").
// An input that already ends in .txt gets a "_converted" suffix so the
// output never replaces it.
func DefaultOutputPath(inPath string) string {
	if inPath == StdioPath {
		return StdioPath
	}
	ext := filepath.Ext(inPath)
	base := strings.TrimSuffix(inPath, ext)
	if strings.EqualFold(ext, OutputExtension) {
		base += "_converted"
	}
	return base + OutputExtension
}

// ConvertFile converts the file at inPath and writes the result to outPath.
// An empty outPath uses DefaultOutputPath. "-" reads stdin or writes stdout.
//
// A regular output file is written to a temporary file in the same
// directory and renamed into place on success, so a failed run leaves any
// existing output untouched.
func (c *Converter) ConvertFile(ctx context.Context, inPath, outPath string) (*ConversionResult, error) {
	if outPath == "" {
		outPath = DefaultOutputPath(inPath)
	}

	in, err := openInput(inPath)
	if err != nil {
		return nil, err
	}
	defer in.Reader.(io.Closer).Close()

	if inPath != StdioPath && outPath != StdioPath {
		if same, err := sameFile(inPath, outPath); err == nil && same {
			return nil, fmt.Errorf("%w: %s", ErrSameFile, outPath)
		}
	}

	if outPath == StdioPath {
		return c.Convert(ctx, in, os.Stdout)
	}

	tmp, err := os.CreateTemp(filepath.Dir(outPath), "."+filepath.Base(outPath)+".*")
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	result, err := c.Convert(ctx, in, tmp)
	if err != nil {
		return result, err
	}

	if err := tmp.Close(); err != nil {
		return result, fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return result, fmt.Errorf("rename output: %w", err)
	}
	committed = true

	return result, nil
}

// openInput opens inPath for reading and fails early when it is missing,
// a directory, or unreadable.
func openInput(inPath string) (Input, error) {
	if inPath == StdioPath {
		return Input{Name: "stdin", Reader: io.NopCloser(os.Stdin)}, nil
	}

	info, err := os.Stat(inPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Input{}, fmt.Errorf("file not found: %s", inPath)
		}
		return Input{}, fmt.Errorf("stat input: %w", err)
	}
	if info.IsDir() {
		return Input{}, fmt.Errorf("file is a directory: %s", inPath)
	}

	f, err := os.Open(inPath)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Input{}, fmt.Errorf("file not readable: %s", inPath)
		}
		return Input{}, fmt.Errorf("open input: %w", err)
	}

	return Input{
		Name:   filepath.Base(inPath),
		Reader: f,
		Size:   info.Size(),
	}, nil
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"export.csv", "export.txt"},
		{"/data/registry/export.TSV", "/data/registry/export.txt"},
		{"export", "export.txt"},
		{"archive.2024.csv", "archive.2024.txt"},
		{"export.txt", "export_converted.txt"},
		{"-", "-"},
	}

	for _, tt := range tests {
		if got := DefaultOutputPath(tt.in); got != tt.want {
			t.Errorf("DefaultOutputPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConvertFile(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "export.csv")
	if err := os.WriteFile(inPath, exportFile(t, annaRow, bertilRow), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewConverter(DefaultOptions())
	result, err := c.ConvertFile(context.Background(), inPath, "")
	if err != nil {
		t.Fatalf("ConvertFile() error = %v", err)
	}

	out, err := os.ReadFile(filepath.Join(dir, "export.txt"))
	if err != nil {
		t.Fatalf("default output not written: %v", err)
	}
	if got := decodeLatin1(t, out); got != annaOut+bertilOut {
		t.Errorf("output = %q", got)
	}
	if result.FileName != "export.csv" || result.Converted != 2 {
		t.Errorf("result = %+v", result)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestConvertFile_FailureKeepsExistingOutput(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "empty.csv")
	outPath := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(inPath, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outPath, []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewConverter(DefaultOptions()).ConvertFile(context.Background(), inPath, outPath)
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("ConvertFile() error = %v, want ErrEmptyInput", err)
	}

	got, _ := os.ReadFile(outPath)
	if string(got) != "previous" {
		t.Errorf("existing output overwritten: %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestConvertFile_InputChecks(t *testing.T) {
	dir := t.TempDir()
	c := NewConverter(DefaultOptions())

	same := filepath.Join(dir, "same.txt")
	if err := os.WriteFile(same, exportFile(t, annaRow), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		in      string
		out     string
		wantMsg string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "nope.csv"), "", "file not found", nil},
		{"directory", dir, filepath.Join(dir, "x.txt"), "is a directory", nil},
		{"output is input", same, same, "", ErrSameFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.ConvertFile(context.Background(), tt.in, tt.out)
			if err == nil {
				t.Fatal("ConvertFile() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

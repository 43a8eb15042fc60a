package web

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/logging"
	"github.com/JonMunkholm/regconv/internal/registry"
)

// multipartMemory is how much of a multipart upload is held in memory
// before spilling to temporary files.
const multipartMemory = 32 << 20

// Response headers describing a finished conversion.
const (
	HeaderRunID     = "X-Run-ID"
	HeaderConverted = "X-Converted-Rows"
	HeaderSkipped   = "X-Skipped-Rows"
	HeaderTruncated = "X-Truncated-Rows"
)

// handleConvert converts an uploaded registry export and returns the
// converted file. The export is the raw request body or the "file" field
// of a multipart form. Query parameters override the server defaults.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r.URL.Query())
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	in, cleanup, err := requestInput(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	conv := core.NewConverter(opts)
	if s.store != nil {
		conv = conv.WithSink(s.store.NewRecordWriter())
	}

	var out bytes.Buffer
	result, err := conv.Convert(ctx, in, &out)
	if result != nil {
		w.Header().Set(HeaderRunID, result.RunID)
	}
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	if len(result.FailedRows) > 0 {
		logging.FromContext(r.Context()).Info("rows skipped",
			"run_id", result.RunID,
			"skipped", result.Skipped,
			"first_line", result.FailedRows[0].LineNumber,
			"first_reason", result.FailedRows[0].Reason,
		)
	}

	h := w.Header()
	h.Set(HeaderConverted, strconv.Itoa(result.Converted))
	h.Set(HeaderSkipped, strconv.Itoa(result.Skipped))
	h.Set(HeaderTruncated, strconv.Itoa(result.Truncated))
	h.Set("Content-Type", "text/plain; charset="+opts.OutputEncoding.Name())
	h.Set("Content-Length", strconv.Itoa(out.Len()))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": filepath.Base(core.DefaultOutputPath(in.Name)),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = out.WriteTo(w)
}

// requestOptions applies query parameter overrides to the server defaults.
func (s *Server) requestOptions(q url.Values) (core.Options, error) {
	opts := s.opts

	if v := q.Get("input_encoding"); v != "" {
		enc, err := codec.Lookup(v)
		if err != nil {
			return opts, fmt.Errorf("%w: input_encoding: %w", errInvalidRequest, err)
		}
		opts.InputEncoding = enc
	}
	if v := q.Get("output_encoding"); v != "" {
		enc, err := codec.Lookup(v)
		if err != nil {
			return opts, fmt.Errorf("%w: output_encoding: %w", errInvalidRequest, err)
		}
		opts.OutputEncoding = enc
	}
	if v := q.Get("skip_rows"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: skip_rows must be a non-negative integer, got %q", errInvalidRequest, v)
		}
		opts.SkipRows = n
	}
	if v := q.Get("quoting"); v != "" {
		quoting, err := codec.ParseQuoting(v)
		if err != nil {
			return opts, fmt.Errorf("%w: quoting: %w", errInvalidRequest, err)
		}
		opts.OutputDialect.Quoting = quoting
	}
	if q.Has("required") {
		policy, err := registry.ParsePolicy(config.SplitList(q.Get("required")))
		if err != nil {
			return opts, fmt.Errorf("%w: required: %w", errInvalidRequest, err)
		}
		opts.Policy = policy
	}
	if v := q.Get("replace_unsupported"); v != "" {
		replace, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("%w: replace_unsupported: %q", errInvalidRequest, v)
		}
		opts.ReplaceUnsupported = replace
	}

	return opts, nil
}

// requestInput extracts the export from a multipart "file" field or the
// raw body. The returned cleanup releases any temporary upload files.
func requestInput(r *http.Request) (core.Input, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if r.ContentLength == 0 {
			return core.Input{}, noop, errNoFile
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		return core.Input{Name: filepath.Base(name), Reader: r.Body, Size: r.ContentLength}, noop, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return core.Input{}, noop, fmt.Errorf("%w: upload: %w", errInvalidRequest, err)
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup()
		return core.Input{}, noop, errNoFile
	}

	return core.Input{Name: filepath.Base(header.Filename), Reader: file, Size: header.Size},
		func() {
			file.Close()
			cleanup()
		}, nil
}

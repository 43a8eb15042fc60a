package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/store"
)

const (
	annaRow = "170101-9999\tanna\tek\t\tstorgatan 1\t123 45\tmalmo\tse\t\tAnna@Example.COM\tbas"
	annaOut = `"1701019999"	"ANNA"	"EK"	""	"STORGATAN 1"	"12345"	"MALMO"	"SE"	""	"anna@example.com"	"BAS"` + "\r\n"
)

// utf8Query converts plain UTF-8 input without header rows.
const utf8Query = "?input_encoding=utf-8&output_encoding=utf-8&skip_rows=0"

func newTestServer(t *testing.T, st *store.Store, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg := config.Defaults()
	if mutate != nil {
		mutate(cfg)
	}
	return NewServer(cfg, core.DefaultOptions(), st)
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestSchema(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SchemaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Fields, 11)
	assert.Equal(t, FieldInfo{Position: 0, Name: "identity_number", Rule: "identity_number"}, resp.Fields[0])
	assert.Equal(t, "email", resp.Fields[9].Name)
	assert.Equal(t, "lower", resp.Fields[9].Rule)
	assert.Contains(t, resp.Encodings, "latin-1")
	assert.Equal(t, "utf-16", resp.InputEncoding)
	assert.Equal(t, "latin-1", resp.OutputEncoding)
	assert.Equal(t, 3, resp.SkipRows)
}

func TestStatus(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) { c.Upload.MaxConcurrent = 2 })
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status core.LimiterStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 2, status.MaxConcurrent)
	assert.Equal(t, 2, status.Available)
}

func TestNormalize(t *testing.T) {
	s := newTestServer(t, nil, nil)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantValue   string
		wantValid   bool
		wantMissing []string
		wantCode    string
	}{
		{
			name:       "positional values",
			body:       `{"values":["19170101-9999","anna","","","","","","","","",""]}`,
			wantStatus: http.StatusOK,
			wantValue:  "1701019999",
			wantValid:  true,
		},
		{
			name:        "named fields with required override",
			body:        `{"fields":{"ssn":"170101-090","first_name":"bo"},"required":["email","first_name"]}`,
			wantStatus:  http.StatusOK,
			wantValue:   "1701010900",
			wantValid:   false,
			wantMissing: []string{"email"},
		},
		{
			name:       "wrong value count",
			body:       `{"values":["1","2"]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "CNV005",
		},
		{
			name:       "unknown field",
			body:       `{"fields":{"shoe_size":"44"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "CNV004",
		},
		{
			name:       "alias and canonical name",
			body:       `{"fields":{"ssn":"1111111111","identity_number":"2222222222"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "CNV008",
		},
		{
			name:       "values and fields",
			body:       `{"values":[],"fields":{}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "UPL004",
		},
		{
			name:       "malformed json",
			body:       `{"values":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "UPL004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := serve(s, req)
			require.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
				return
			}

			var resp NormalizeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp.Values, 11)
			assert.Equal(t, tt.wantValue, resp.Values[0])
			assert.Equal(t, tt.wantValue, resp.Fields["identity_number"])
			assert.Equal(t, tt.wantValid, resp.Valid)
			if tt.wantMissing == nil {
				assert.Empty(t, resp.Missing)
			} else {
				assert.Equal(t, tt.wantMissing, resp.Missing)
			}
		})
	}
}

func TestConvert_RawBody(t *testing.T) {
	s := newTestServer(t, nil, nil)
	body := annaRow + "\n\n170101-1\tbo\n"

	req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query+"&name=export.csv", strings.NewReader(body))
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, annaOut, rec.Body.String())
	assert.Equal(t, "1", rec.Header().Get(HeaderConverted))
	assert.Equal(t, "1", rec.Header().Get(HeaderSkipped))
	assert.Equal(t, "0", rec.Header().Get(HeaderTruncated))
	assert.Equal(t, `attachment; filename=export.txt`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	_, err := uuid.Parse(rec.Header().Get(HeaderRunID))
	assert.NoError(t, err)
}

func TestConvert_Multipart(t *testing.T) {
	s := newTestServer(t, nil, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "registry.tsv")
	require.NoError(t, err)
	_, err = part.Write([]byte(annaRow + "\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query+"&quoting=minimal", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, strings.ReplaceAll(annaOut, `"`, ""), rec.Body.String())
	assert.Equal(t, `attachment; filename=registry.txt`, rec.Header().Get("Content-Disposition"))
}

func TestConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		body       string
		mutate     func(*config.Config)
		wantStatus int
		wantCode   string
	}{
		{"no body", utf8Query, "", nil, http.StatusBadRequest, "FILE006"},
		{"unknown encoding", "?output_encoding=ebcdic", annaRow, nil, http.StatusBadRequest, "CNV003"},
		{"bad skip rows", "?skip_rows=-1", annaRow, nil, http.StatusBadRequest, "UPL004"},
		{"bad quoting", "?quoting=sometimes", annaRow, nil, http.StatusBadRequest, "UPL004"},
		{"unknown required field", "?required=shoe_size", annaRow, nil, http.StatusBadRequest, "CNV004"},
		{"bad replace flag", "?replace_unsupported=maybe", annaRow, nil, http.StatusBadRequest, "UPL004"},
		{"blank input", utf8Query, "\n\n", nil, http.StatusBadRequest, "FILE005"},
		{
			name:       "body too large",
			query:      utf8Query,
			body:       strings.Repeat(annaRow+"\n", 10),
			mutate:     func(c *config.Config) { c.Upload.MaxFileSize = 64 },
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, tt.mutate)
			req := httptest.NewRequest(http.MethodPost, "/api/convert"+tt.query, strings.NewReader(tt.body))
			rec := serve(s, req)

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Code)
		})
	}
}

func TestConvert_Busy(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.Upload.MaxConcurrent = 1
		c.Upload.MaxWaitTime = 10 * time.Millisecond
	})
	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query, strings.NewReader(annaRow))
	rec := serve(s, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL001", decodeError(t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestConvert_PersistsRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	runArgs := func(status string) []any {
		args := make([]any, 14)
		for i := range args {
			args[i] = pgxmock.AnyArg()
		}
		args[4] = status
		return args
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversion_runs").
		WithArgs(runArgs(store.StatusRunning)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"registry_entries"}, []string{
		"run_id", "line_number",
		"identity_number", "first_name", "last_name", "care_of", "street_address",
		"postal_code", "city", "country", "phone", "email", "program",
	}).WillReturnResult(1)
	mock.ExpectExec("INSERT INTO conversion_runs").
		WithArgs(runArgs(store.StatusComplete)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := newTestServer(t, store.New(mock, 0), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query, strings.NewReader(annaRow+"\n"))
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRun(t *testing.T) {
	t.Run("Should return 501 without a store", func(t *testing.T) {
		s := newTestServer(t, nil, nil)
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotImplemented, rec.Code)
		assert.Equal(t, "DB006", decodeError(t, rec).Code)
	})

	t.Run("Should reject a malformed id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		s := newTestServer(t, store.New(mock, 0), nil)
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Should return 404 for an unknown run", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM conversion_runs").
			WithArgs(pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		s := newTestServer(t, store.New(mock, 0), nil)
		rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/runs/"+id.String(), nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "DB005", decodeError(t, rec).Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAPIKeyRequired(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1"}
	})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	req.Header.Set("X-API-Key", "k1")
	rec = serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConvert_RateLimited(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.Rate.ConvertLimit = 1
	})

	convert := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query, strings.NewReader(annaRow+"\n"))
		return serve(s, req)
	}

	require.Equal(t, http.StatusOK, convert().Code)

	rec := convert()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "UPL005", decodeError(t, rec).Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "other routes keep their own budget")
}

func TestConvert_RateLimitDisabled(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.Config) {
		c.Rate.Enabled = false
		c.Rate.ConvertLimit = 1
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/convert"+utf8Query, strings.NewReader(annaRow+"\n"))
		assert.Equal(t, http.StatusOK, serve(s, req).Code)
	}
}

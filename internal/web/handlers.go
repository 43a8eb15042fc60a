package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/regconv/internal/codec"
	"github.com/JonMunkholm/regconv/internal/registry"
)

// maxNormalizeBody bounds the JSON body of a normalize request.
const maxNormalizeBody = 1 << 20

// FieldInfo describes one registry field.
type FieldInfo struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Rule     string `json:"rule"`
	Required bool   `json:"required"`
}

// SchemaResponse lists the record layout and the supported settings.
type SchemaResponse struct {
	Fields         []FieldInfo `json:"fields"`
	Encodings      []string    `json:"encodings"`
	QuotingModes   []string    `json:"quotingModes"`
	InputEncoding  string      `json:"inputEncoding"`
	OutputEncoding string      `json:"outputEncoding"`
	SkipRows       int         `json:"skipRows"`
}

// NormalizeRequest carries one record, either positionally or by name.
type NormalizeRequest struct {
	Values   []string          `json:"values,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Required []string          `json:"required,omitempty"`
}

// NormalizeResponse is a normalized record and its policy check.
type NormalizeResponse struct {
	Values  []string          `json:"values"`
	Fields  map[string]string `json:"fields"`
	Valid   bool              `json:"valid"`
	Missing []string          `json:"missing"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSchema returns the field layout and conversion defaults.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	fields := registry.Fields()
	info := make([]FieldInfo, len(fields))
	for i, f := range fields {
		info[i] = FieldInfo{
			Position: int(f),
			Name:     f.String(),
			Rule:     f.Rule().String(),
			Required: s.opts.Policy.Requires(f),
		}
	}

	writeJSON(w, http.StatusOK, SchemaResponse{
		Fields:         info,
		Encodings:      codec.Names(),
		QuotingModes:   []string{codec.QuoteAll.String(), codec.QuoteMinimal.String(), codec.QuoteNonNumeric.String(), codec.QuoteNone.String()},
		InputEncoding:  s.opts.InputEncoding.Name(),
		OutputEncoding: s.opts.OutputEncoding.Name(),
		SkipRows:       s.opts.SkipRows,
	})
}

// handleStatus returns the current state of the conversion limiter.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.limiter.Status())
}

// handleNormalize normalizes a single record without a file round trip.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxNormalizeBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("%w: body: %v", errInvalidRequest, err), http.StatusBadRequest)
		return
	}

	var (
		rec *registry.Record
		err error
	)
	switch {
	case req.Values != nil && req.Fields != nil:
		err = fmt.Errorf("%w: send values or fields, not both", errInvalidRequest)
	case req.Values != nil:
		rec, err = registry.New(req.Values...)
	default:
		rec, err = registry.FromMap(req.Fields)
	}
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	policy := s.opts.Policy
	if req.Required != nil {
		if policy, err = registry.ParsePolicy(req.Required); err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
	}

	missing := rec.Missing(policy)
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = f.String()
	}

	writeJSON(w, http.StatusOK, NormalizeResponse{
		Values:  rec.Values(),
		Fields:  rec.Map(),
		Valid:   len(missing) == 0,
		Missing: names,
	})
}

// handleGetRun returns a stored conversion summary.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, errNoStore, 0)
		return
	}

	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		respondError(w, r, fmt.Errorf("%w: run id %q", errInvalidRequest, runID), http.StatusBadRequest)
		return
	}

	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

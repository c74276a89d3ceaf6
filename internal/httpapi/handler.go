// Package httpapi exposes the duplicate service over HTTP.
//
// Routes:
//
//	POST /api/add/image    multipart: file, hash_size, index_name  -> 201 {"added": [...]}
//	                       raster images only, anything else is a decode_error
//	POST /api/add/images   same contract, glTF/GLB aware, other bytes content hashed
//	POST /api/check        multipart: dist, file, hash_size, index_name -> 200 {"duplicated": bool}
//	GET  /api/stats        query: index_name, bits
//	GET  /healthz
//	GET  /metrics          Prometheus exposition, when a gatherer is configured
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/imgdedup"
	"github.com/hupe1980/imgdedup/codec"
	"github.com/hupe1980/imgdedup/internal/resource"
)

// Config holds the handler's limits and collaborators.
type Config struct {
	// MaxUploadBytes bounds the request body.
	MaxUploadBytes int64

	// Codec encodes response bodies. Defaults to codec.Default.
	Codec codec.Codec

	// Admission gates the API routes. Nil admits everything.
	Admission *resource.Controller

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	Logger *slog.Logger
}

// DefaultConfig returns reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MaxUploadBytes: 64 << 20, // 64MB
		Codec:          codec.Default,
		Logger:         slog.Default(),
	}
}

type api struct {
	svc    *imgdedup.Service
	cfg    Config
	logger *slog.Logger
}

// Handler creates the HTTP handler with all routes and middleware.
func Handler(svc *imgdedup.Service, cfg Config) http.Handler {
	def := DefaultConfig()
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.Codec == nil {
		cfg.Codec = def.Codec
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	a := &api{svc: svc, cfg: cfg, logger: cfg.Logger}

	// Execution order: admission -> body limit -> handler
	withLimits := func(h http.HandlerFunc) http.Handler {
		return applyMiddleware(h, a.admissionMiddleware, a.bodyLimitMiddleware)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	if cfg.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Handle("POST /api/add/image", withLimits(a.handleAdd(true)))
	mux.Handle("POST /api/add/images", withLimits(a.handleAdd(false)))
	mux.Handle("POST /api/check", withLimits(a.handleCheck))
	mux.HandleFunc("GET /api/stats", a.handleStats)

	return applyMiddleware(mux,
		requestIDMiddleware,
		loggingMiddleware(cfg.Logger),
		a.recoveryMiddleware,
	)
}

// AddResponse is the body of a successful add.
type AddResponse struct {
	Added    []string `json:"added"`
	IDs      []uint64 `json:"ids,omitempty"`
	BitWidth int      `json:"bit_width,omitempty"`
}

// CheckResponse is the body of a successful check.
type CheckResponse struct {
	Duplicated bool        `json:"duplicated"`
	BitWidth   int         `json:"bit_width,omitempty"`
	Matches    []MatchJSON `json:"matches,omitempty"`
}

// MatchJSON is one match in a CheckResponse.
type MatchJSON struct {
	Image    string `json:"image"`
	ID       uint64 `json:"id"`
	Label    string `json:"label,omitempty"`
	Distance int    `json:"distance"`
}

// StatsResponse describes a collection.
type StatsResponse struct {
	Collection  string `json:"collection"`
	BitWidth    int    `json:"bit_width"`
	Exists      bool   `json:"exists"`
	Count       uint64 `json:"count"`
	SizeBytes   int    `json:"size_bytes"`
	Compression string `json:"compression,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (a *api) handleAdd(rasterOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		up, err := a.readUpload(r)
		if err != nil {
			a.writeRequestError(w, err)
			return
		}
		up.RasterOnly = rasterOnly

		res, err := a.svc.Add(r.Context(), up)
		if err != nil {
			a.writeServiceError(w, r, err)
			return
		}
		a.writeJSON(w, http.StatusCreated, AddResponse{Added: res.Added, IDs: res.IDs, BitWidth: res.BitWidth})
	}
}

func (a *api) handleCheck(w http.ResponseWriter, r *http.Request) {
	up, err := a.readUpload(r)
	if err != nil {
		a.writeRequestError(w, err)
		return
	}

	raw := r.FormValue("dist")
	if raw == "" {
		a.writeError(w, http.StatusBadRequest, "config_error", "dist is required")
		return
	}
	dist, err := strconv.Atoi(raw)
	if err != nil {
		a.writeError(w, http.StatusBadRequest, "config_error", fmt.Sprintf("dist must be an integer, got %q", raw))
		return
	}

	res, err := a.svc.Check(r.Context(), up, dist)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}

	body := CheckResponse{Duplicated: res.Duplicated, BitWidth: res.BitWidth}
	for _, m := range res.Matches {
		body.Matches = append(body.Matches, MatchJSON{Image: m.Image, ID: m.ID, Label: m.Label, Distance: m.Distance})
	}
	a.writeJSON(w, http.StatusOK, body)
}

func (a *api) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bits := imgdedup.DefaultHashSize * imgdedup.DefaultHashSize
	if raw := q.Get("bits"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			a.writeError(w, http.StatusBadRequest, "config_error", fmt.Sprintf("bits must be an integer, got %q", raw))
			return
		}
		bits = v
	}

	st, err := a.svc.Stats(r.Context(), q.Get("index_name"), bits)
	if err != nil {
		a.writeServiceError(w, r, err)
		return
	}
	body := StatsResponse{
		Collection: st.Name,
		BitWidth:   st.BitWidth,
		Exists:     st.Exists,
		Count:      st.Count,
		SizeBytes:  st.SizeBytes,
	}
	if st.Exists {
		body.Compression = st.Compression.String()
	}
	a.writeJSON(w, http.StatusOK, body)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// errBadForm marks malformed multipart requests.
var errBadForm = errors.New("bad form")

// readUpload parses the multipart form shared by add and check.
func (a *api) readUpload(r *http.Request) (imgdedup.Upload, error) {
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		return imgdedup.Upload{}, fmt.Errorf("%w: %w", errBadForm, err)
	}

	file, hdr, err := r.FormFile("file")
	if err != nil {
		return imgdedup.Upload{}, fmt.Errorf("%w: file: %w", errBadForm, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return imgdedup.Upload{}, fmt.Errorf("%w: file: %w", errBadForm, err)
	}

	up := imgdedup.Upload{
		Filename:   uploadName(hdr),
		Data:       data,
		Collection: r.FormValue("index_name"),
	}
	if raw := r.FormValue("hash_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return imgdedup.Upload{}, fmt.Errorf("%w: hash_size must be an integer, got %q", imgdedup.ErrConfig, raw)
		}
		up.HashSize = n
	}
	return up, nil
}

func uploadName(hdr *multipart.FileHeader) string {
	if hdr == nil || hdr.Filename == "" {
		return "upload"
	}
	return hdr.Filename
}

func (a *api) writeRequestError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe):
		a.writeError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
	case errors.Is(err, imgdedup.ErrConfig):
		a.writeError(w, http.StatusBadRequest, "config_error", err.Error())
	default:
		a.writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	}
}

func (a *api) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := imgdedup.KindOf(err)
	status := StatusOf(kind)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "request failed", "kind", kind, "error", err, "request_id", RequestID(r.Context()))
	}
	a.writeError(w, status, kind, err.Error())
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind string) int {
	switch kind {
	case "decode_error", "config_error":
		return http.StatusBadRequest
	case "dimension_mismatch":
		return http.StatusConflict
	case "store_unavailable", "canceled":
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *api) writeError(w http.ResponseWriter, status int, kind, detail string) {
	a.writeJSON(w, status, ErrorResponse{Error: kind, Detail: detail})
}

func (a *api) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := a.cfg.Codec.Marshal(v)
	if err != nil {
		a.logger.Error("failed to encode response", "error", err)
		http.Error(w, `{"error":"internal","detail":"encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

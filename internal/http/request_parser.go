package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/brandonwu32/financedashboard/internal/core"
	"github.com/brandonwu32/financedashboard/internal/dates"
	"github.com/brandonwu32/financedashboard/internal/parser"
)

const (
	maxJSONBody  = 1 << 20
	defaultTop   = 5
	defaultCount = 6
	maxCount     = 60
)

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const op = "decode request"
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return core.Errorf(core.ErrInput, op, "request body exceeds %d bytes", tooBig.Limit)
		}
		return core.Errorf(core.ErrInput, op, "malformed JSON: %v", err)
	}
}

func (s *Server) parseCadence(r *http.Request) (core.Cadence, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("cadence"))
	if raw == "" {
		return s.opts.DefaultCadence, nil
	}
	return core.ParseCadence(raw)
}

// parseDay reads the reference day. Any format the date normalizer
// accepts works; empty means today.
func (s *Server) parseDay(r *http.Request) (time.Time, error) {
	now := s.opts.Now()
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return now, nil
	}
	d, ok := dates.Normalize(raw, now)
	if !ok {
		return time.Time{}, core.Errorf(core.ErrInput, "parse date", "unrecognized date %q", raw)
	}
	return d.Time(now.Location()), nil
}

func parsePositiveInt(r *http.Request, key string, def, limit int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, core.Errorf(core.ErrInput, "parse "+key, "%s must be a positive integer", key)
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n, nil
}

// parseUpload reads the multipart form of a parse request.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) ([]parser.File, parser.Hints, bool, error) {
	const op = "parse upload"
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, parser.Hints{}, false, core.Errorf(core.ErrInput, op, "upload exceeds %d MB", s.opts.MaxUploadBytes>>20)
		}
		return nil, parser.Hints{}, false, core.Errorf(core.ErrInput, op, "expected multipart form: %v", err)
	}

	var headers []*multipart.FileHeader
	for _, key := range []string{"files", "files[]"} {
		headers = append(headers, r.MultipartForm.File[key]...)
	}
	if len(headers) == 0 {
		return nil, parser.Hints{}, false, core.Errorf(core.ErrInput, op, "no files provided")
	}

	files := make([]parser.File, 0, len(headers))
	for _, fh := range headers {
		f, err := readUpload(fh)
		if err != nil {
			return nil, parser.Hints{}, false, core.E(core.ErrInput, op, err)
		}
		files = append(files, f)
	}

	hints := parser.Hints{
		CreditCard: strings.TrimSpace(r.FormValue("creditCard")),
		CutoffDate: strings.TrimSpace(r.FormValue("cutoffDate")),
	}
	save := r.FormValue("saveToSheet") == "true"
	return files, hints, save, nil
}

func readUpload(fh *multipart.FileHeader) (parser.File, error) {
	src, err := fh.Open()
	if err != nil {
		return parser.File{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return parser.File{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	mime := fh.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return parser.File{Name: fh.Filename, MIMEType: mime, Data: data}, nil
}

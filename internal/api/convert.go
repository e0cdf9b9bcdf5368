package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MikeSquared-Agency/har2csv/internal/orders"
	"github.com/MikeSquared-Agency/har2csv/internal/pipeline"
	"github.com/MikeSquared-Agency/har2csv/internal/report"
)

// formField is the multipart field carrying capture files.
const formField = "files"

const maxFormMemory = 32 << 20

var errNoFiles = errors.New("no files uploaded")

// FileView is the JSON form of a per-file result.
type FileView struct {
	Name        string `json:"name"`
	Entries     int    `json:"entries"`
	Exchanges   int    `json:"exchanges"`
	Undecodable int    `json:"undecodable"`
	Records     int    `json:"records"`
	Error       string `json:"error,omitempty"`
}

// PreviewResponse is returned by the preview endpoint.
type PreviewResponse struct {
	RunID        string          `json:"run_id"`
	Files        []FileView      `json:"files"`
	Records      int             `json:"records"`
	PhoneSources map[string]int  `json:"phone_sources"`
	Rows         []orders.Record `json:"rows"`
	Truncated    bool            `json:"truncated"`
}

type emptyResponse struct {
	Error string     `json:"error"`
	RunID string     `json:"run_id"`
	Files []FileView `json:"files"`
}

func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	sources, status, err := s.readSources(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	sum, err := s.runner.Run(r.Context(), sources)
	if err != nil {
		s.logger.Warn("conversion aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "conversion aborted")
		return
	}

	if len(sum.Records) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, emptyResponse{
			Error: "no order records found",
			RunID: sum.RunID.String(),
			Files: fileViews(sum.Files),
		})
		return
	}

	data := report.Serialize(sum.Records)
	name := report.Filename(s.now())

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Har2csv-Run-Id", sum.RunID.String())
	w.Header().Set("X-Har2csv-Records", strconv.Itoa(len(sum.Records)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("failed to write CSV response", "run_id", sum.RunID.String(), "error", err)
	}

	s.runner.Notify(r.Context(), sum, name)
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	limit := DefaultPreviewLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sources, status, err := s.readSources(w, r)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	sum, err := s.runner.Run(r.Context(), sources)
	if err != nil {
		s.logger.Warn("preview aborted", "error", err)
		writeError(w, http.StatusServiceUnavailable, "conversion aborted")
		return
	}

	rows := sum.Records
	if len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = []orders.Record{}
	}

	tally := make(map[string]int, len(orders.PhoneSources))
	for _, src := range orders.PhoneSources {
		tally[string(src)] = sum.Tally[src]
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		RunID:        sum.RunID.String(),
		Files:        fileViews(sum.Files),
		Records:      len(sum.Records),
		PhoneSources: tally,
		Rows:         rows,
		Truncated:    len(sum.Records) > len(rows),
	})
}

// readSources reads every uploaded capture file. The returned status is the
// HTTP code to report when err is non-nil.
func (s *Server) readSources(w http.ResponseWriter, r *http.Request) ([]pipeline.Source, int, error) {
	if s.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", tooBig.Limit)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("parse upload: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[formField]
	if len(headers) == 0 {
		return nil, http.StatusBadRequest, errNoFiles
	}

	sources := make([]pipeline.Source, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		sources = append(sources, pipeline.Source{Name: fh.Filename, Data: data})
	}
	return sources, http.StatusOK, nil
}

func fileViews(files []pipeline.FileResult) []FileView {
	views := make([]FileView, 0, len(files))
	for _, f := range files {
		v := FileView{
			Name:        f.Name,
			Entries:     f.Entries,
			Exchanges:   f.Exchanges,
			Undecodable: f.Undecodable,
			Records:     len(f.Records),
		}
		if f.Err != nil {
			v.Error = f.Err.Error()
		}
		views = append(views, v)
	}
	return views
}

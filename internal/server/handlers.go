package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/formscan/formscan/internal/ocr"
	"github.com/formscan/formscan/internal/service"
)

// healthResponse is the body of GET /health.
type healthResponse struct {
	Status   string    `json:"status"`
	OCRReady bool      `json:"ocr_ready"`
	Engine   *ocr.Info `json:"engine,omitempty"`
	Server   string    `json:"server"`
	Version  string    `json:"version"`
}

// handleUpload accepts a multipart form with one or more "files"
// parts, runs each through the pipeline, and returns per-file results
// in upload order. A failed file reports its error in place; it never
// fails the batch.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize)

	mr, err := r.MultipartReader()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "expected multipart form data")
		return
	}

	var (
		results []service.FileResult
		files   []service.BatchFile
		slots   []int // results index per saved file
	)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeErr(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeErr(w, http.StatusBadRequest, "malformed multipart form")
			return
		}
		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		name := part.FileName()
		path, err := s.svc.Store().Save(part, name)
		part.Close()
		if err != nil {
			results = append(results, service.FileResult{Success: false, Filename: name, Error: err.Error()})
			continue
		}
		defer s.svc.Store().Remove(path)

		slots = append(slots, len(results))
		results = append(results, service.FileResult{})
		files = append(files, service.BatchFile{Path: path, Name: name})
	}

	if len(results) == 0 {
		writeErr(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	batch := s.svc.ProcessBatch(r.Context(), files)
	for i, result := range batch.Results {
		results[slots[i]] = result
	}

	var processed, failed int64
	for _, result := range results {
		if result.Success {
			processed++
		} else {
			failed++
		}
	}
	s.metrics.recordFiles(processed, failed)

	writeJSON(w, http.StatusOK, service.BatchResult{
		Success:        true,
		Results:        results,
		TotalProcessed: len(results),
	})
}

// handleHealth reports liveness plus whether the OCR engine is usable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:  "healthy",
		Server:  s.cfg.ServerName,
		Version: s.cfg.Version,
	}
	if info, err := s.svc.OCRInfo(ctx); err == nil {
		resp.OCRReady = true
		resp.Engine = &info
	} else {
		resp.Status = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleMetrics reports the request and file counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.snapshot())
}

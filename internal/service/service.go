// Package service orchestrates the form processing pipeline: saved
// uploads or on-disk files go through preprocessing and recognition,
// then field extraction, and come back as per-file results that never
// abort a batch.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/formscan/formscan/internal/extraction"
	"github.com/formscan/formscan/internal/ocr"
	"github.com/formscan/formscan/internal/pdfsource"
	"github.com/formscan/formscan/internal/preprocess"
	"github.com/formscan/formscan/internal/upload"
)

// Config wires a Service. Engine, OCR, and Store are required.
type Config struct {
	Engine *extraction.Engine
	OCR    ocr.Engine
	Store  *upload.Store

	// Preprocess enables the image enhancement chain before OCR.
	Preprocess        bool
	PreprocessOptions preprocess.Options

	// Languages passed to the OCR engine for every image.
	Languages []string

	// MaxConcurrentOCR caps simultaneous recognitions. Tesseract is
	// CPU-bound and memory-hungry; zero means 2.
	MaxConcurrentOCR int64
}

// Service runs the pipeline. Safe for concurrent use.
type Service struct {
	engine     *extraction.Engine
	ocrEngine  ocr.Engine
	store      *upload.Store
	preprocess bool
	preOpts    preprocess.Options
	languages  []string
	ocrSem     *semaphore.Weighted
}

// FileResult is the outcome for a single file. Failures carry an
// error message instead of data and leave Success false.
type FileResult struct {
	Success  bool               `json:"success"`
	Filename string             `json:"filename"`
	Data     *extraction.Record `json:"data,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// BatchResult wraps per-file results. Success reflects that the batch
// ran, not that every file succeeded; inspect the results for that.
type BatchResult struct {
	Success        bool         `json:"success"`
	Results        []FileResult `json:"results"`
	TotalProcessed int          `json:"total_processed"`
}

// BatchFile names one input of a batch: the on-disk path and the
// client-facing filename to report results under.
type BatchFile struct {
	Path string
	Name string
}

// New validates the wiring and returns a ready Service.
func New(cfg Config) (*Service, error) {
	if cfg.Engine == nil {
		return nil, fmt.Errorf("extraction engine is required")
	}
	if cfg.OCR == nil {
		return nil, fmt.Errorf("ocr engine is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("upload store is required")
	}
	maxOCR := cfg.MaxConcurrentOCR
	if maxOCR <= 0 {
		maxOCR = 2
	}
	return &Service{
		engine:     cfg.Engine,
		ocrEngine:  cfg.OCR,
		store:      cfg.Store,
		preprocess: cfg.Preprocess,
		preOpts:    cfg.PreprocessOptions,
		languages:  cfg.Languages,
		ocrSem:     semaphore.NewWeighted(maxOCR),
	}, nil
}

// Store exposes the upload store for handlers that stream requests
// into it.
func (s *Service) Store() *upload.Store { return s.store }

// OCRInfo probes the recognition engine, for health reporting.
func (s *Service) OCRInfo(ctx context.Context) (ocr.Info, error) {
	return s.ocrEngine.Info(ctx)
}

// ProcessUpload saves one incoming file, processes it, and cleans it
// up again.
func (s *Service) ProcessUpload(ctx context.Context, r io.Reader, filename string) FileResult {
	path, err := s.store.Save(r, filename)
	if err != nil {
		return failure(filename, err)
	}
	defer s.store.Remove(path)

	return s.ProcessFile(ctx, path, filename)
}

// ProcessFile runs the pipeline on one on-disk file. Errors become a
// failed FileResult; this method never panics a batch.
func (s *Service) ProcessFile(ctx context.Context, path, name string) FileResult {
	if name == "" {
		name = filepath.Base(path)
	}

	var (
		detections []extraction.Detection
		err        error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		detections, err = s.pdfDetections(path)
	} else {
		detections, err = s.imageDetections(ctx, path, name)
	}
	if err != nil {
		return failure(name, err)
	}

	record := s.engine.Process(detections)
	return FileResult{Success: true, Filename: name, Data: &record}
}

// ProcessBatch processes files concurrently, preserving input order in
// the results. One bad file never affects its neighbors.
func (s *Service) ProcessBatch(ctx context.Context, files []BatchFile) BatchResult {
	results := make([]FileResult, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f BatchFile) {
			defer wg.Done()
			results[i] = s.ProcessFile(ctx, f.Path, f.Name)
		}(i, f)
	}
	wg.Wait()

	return BatchResult{Success: true, Results: results, TotalProcessed: len(results)}
}

// ProcessDirectory processes every supported file directly under dir,
// in name order.
func (s *Service) ProcessDirectory(ctx context.Context, dir string) (BatchResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return BatchResult{}, fmt.Errorf("reading directory: %w", err)
	}

	var files []BatchFile
	for _, entry := range entries {
		if entry.IsDir() || !s.store.Allowed(entry.Name()) {
			continue
		}
		files = append(files, BatchFile{Path: filepath.Join(dir, entry.Name()), Name: entry.Name()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return s.ProcessBatch(ctx, files), nil
}

// pdfDetections validates the document and reads its text layer.
func (s *Service) pdfDetections(path string) ([]extraction.Detection, error) {
	if err := pdfsource.Validate(path); err != nil {
		return nil, err
	}
	detections, err := pdfsource.ExtractDetections(path)
	if err != nil {
		if err == pdfsource.ErrNoTextLayer {
			return nil, fmt.Errorf("%w; scanned pdfs are not supported, upload page images instead", err)
		}
		return nil, err
	}
	return detections, nil
}

// imageDetections loads, optionally enhances, and recognizes one
// image. Recognition is gated by the OCR semaphore.
func (s *Service) imageDetections(ctx context.Context, path, name string) ([]extraction.Detection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	if s.preprocess {
		enhanced, err := preprocess.EnhanceBytes(data, s.preOpts)
		if err != nil {
			return nil, err
		}
		data = enhanced
	}

	if err := s.ocrSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.ocrSem.Release(1)

	return s.ocrEngine.Recognize(ctx, ocr.Input{ID: name, Image: data, Languages: s.languages})
}

func failure(name string, err error) FileResult {
	return FileResult{Success: false, Filename: name, Error: err.Error()}
}

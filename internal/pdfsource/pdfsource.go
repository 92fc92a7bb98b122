// Package pdfsource turns the embedded text layer of digitally
// produced PDFs into positioned detections, so PDF forms flow through
// the same extraction pipeline as scanned images. Scanned PDFs carry
// no text layer and are rejected with ErrNoTextLayer.
package pdfsource

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/formscan/formscan/internal/extraction"
)

// ErrNoTextLayer is returned when a PDF contains no extractable text,
// which usually means it is a scan that needs OCR instead.
var ErrNoTextLayer = errors.New("pdf has no extractable text layer")

// pageGap is the vertical spacing inserted between stacked pages so
// reading order across pages stays monotone.
const pageGap = 40.0

// sameLineTolerance is the maximum baseline difference for two glyphs
// to count as one line.
const sameLineTolerance = 0.5

// Validate checks structural well-formedness before any extraction is
// attempted, so corrupt uploads fail with a parse error instead of an
// empty result.
func Validate(path string) error {
	if err := api.ValidateFile(path, nil); err != nil {
		return fmt.Errorf("validating pdf: %w", err)
	}
	return nil
}

// PageCount reports the number of pages.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pdf pages: %w", err)
	}
	return n, nil
}

// ExtractDetections reads every page's text layer and emits one
// detection per word, with full confidence since the text is embedded
// rather than recognized. Pages are stacked vertically in a shared
// top-down coordinate space.
func ExtractDetections(path string) ([]extraction.Detection, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var detections []extraction.Detection
	offset := 0.0
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageDets, pageTop := pageDetections(page.Content().Text, offset)
		detections = append(detections, pageDets...)
		if pageTop > 0 {
			offset += pageTop + pageGap
		}
	}

	if len(detections) == 0 {
		return nil, ErrNoTextLayer
	}
	return detections, nil
}

// pageDetections converts one page's glyphs into word detections.
// PDF Y grows bottom-up; the pipeline expects top-down, so glyph
// baselines are flipped against the page's highest text extent. The
// returned pageTop is that extent, zero for an empty page.
func pageDetections(texts []pdf.Text, offset float64) ([]extraction.Detection, float64) {
	if len(texts) == 0 {
		return nil, 0
	}

	pageTop := 0.0
	for _, t := range texts {
		pageTop = math.Max(pageTop, t.Y+t.FontSize)
	}

	words := groupWords(texts)
	detections := make([]extraction.Detection, 0, len(words))
	for _, w := range words {
		top := offset + pageTop - (w.y + w.height)
		bottom := offset + pageTop - w.y
		detections = append(detections, extraction.Detection{
			Text:       w.text,
			Confidence: 1.0,
			Quad: extraction.Quad{
				{X: w.startX, Y: top},
				{X: w.endX, Y: top},
				{X: w.endX, Y: bottom},
				{X: w.startX, Y: bottom},
			},
		})
	}
	return detections, pageTop
}

type word struct {
	text   string
	startX float64
	endX   float64
	y      float64
	height float64
}

// groupWords merges the reader's per-glyph text items into words. A
// word continues while glyphs share a baseline and sit within a third
// of a font size of each other; whitespace glyphs end the current
// word.
func groupWords(texts []pdf.Text) []word {
	var words []word
	var cur *word

	flush := func() {
		if cur != nil && strings.TrimSpace(cur.text) != "" {
			words = append(words, *cur)
		}
		cur = nil
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}

		if cur != nil {
			gapLimit := t.FontSize * 0.3
			if gapLimit <= 0 {
				gapLimit = 1.0
			}
			sameLine := math.Abs(t.Y-cur.y) <= sameLineTolerance
			adjacent := t.X >= cur.startX && t.X-cur.endX <= gapLimit
			if !sameLine || !adjacent {
				flush()
			}
		}

		if cur == nil {
			cur = &word{text: t.S, startX: t.X, endX: t.X + t.W, y: t.Y, height: t.FontSize}
			continue
		}
		cur.text += t.S
		cur.endX = t.X + t.W
		if t.FontSize > cur.height {
			cur.height = t.FontSize
		}
	}
	flush()

	return words
}

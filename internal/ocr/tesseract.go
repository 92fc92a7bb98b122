package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/formscan/formscan/internal/extraction"
)

// Tesseract recognizes text through the tesseract C library via
// gosseract. A fresh client is created per call: gosseract clients are
// not safe for concurrent use and carry no state worth pooling.
type Tesseract struct {
	languages []string
}

// NewTesseract returns an engine recognizing the given languages.
// Empty means English.
func NewTesseract(languages []string) *Tesseract {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &Tesseract{languages: languages}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Info reports the installed tesseract version and trained languages.
func (t *Tesseract) Info(ctx context.Context) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	languages, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return Info{}, fmt.Errorf("listing tesseract languages: %w", err)
	}

	return Info{
		Name:      t.Name(),
		Version:   client.Version(),
		Languages: languages,
	}, nil
}

// Recognize runs word-level OCR on the image. The context is checked
// before the call; the C recognition itself is not interruptible.
func (t *Tesseract) Recognize(ctx context.Context, in Input) ([]extraction.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	languages := in.Languages
	if len(languages) == 0 {
		languages = t.languages
	}
	if err := client.SetLanguage(languages...); err != nil {
		return nil, fmt.Errorf("setting languages %s: %w", strings.Join(languages, "+"), err)
	}
	if err := client.SetImageFromBytes(in.Image); err != nil {
		return nil, fmt.Errorf("loading image %s: %w", in.ID, err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognizing %s: %w", in.ID, err)
	}

	return boxesToDetections(boxes), nil
}

// boxesToDetections converts tesseract word boxes to detections.
// Tesseract reports confidence in percent and boxes as axis-aligned
// rectangles; corners are emitted clockwise from top-left.
func boxesToDetections(boxes []gosseract.BoundingBox) []extraction.Detection {
	detections := make([]extraction.Detection, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		r := box.Box
		detections = append(detections, extraction.Detection{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Quad: extraction.Quad{
				{X: float64(r.Min.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Min.Y)},
				{X: float64(r.Max.X), Y: float64(r.Max.Y)},
				{X: float64(r.Min.X), Y: float64(r.Max.Y)},
			},
		})
	}
	return detections
}

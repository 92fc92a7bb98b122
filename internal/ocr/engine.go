package ocr

import (
	"context"

	"github.com/formscan/formscan/internal/extraction"
)

// Input is one image handed to an engine for recognition. Image holds
// the encoded bytes (PNG, JPEG, ...); ID is a caller-chosen identifier
// used only in error messages.
type Input struct {
	ID        string
	Image     []byte
	Languages []string
}

// Info describes a recognition engine for health and server-info
// responses.
type Info struct {
	Name      string   `json:"name"`
	Version   string   `json:"version"`
	Languages []string `json:"languages"`
}

// Engine recognizes text in a single image and reports each word as a
// positioned detection. Implementations must be safe for concurrent
// use; callers gate parallelism separately.
type Engine interface {
	// Name identifies the engine in logs and responses.
	Name() string

	// Info probes the engine's backing installation. An error means the
	// engine is not ready to recognize.
	Info(ctx context.Context) (Info, error)

	// Recognize runs OCR on one image. An empty result with a nil error
	// means the image contained no recognizable text.
	Recognize(ctx context.Context, in Input) ([]extraction.Detection, error)
}

// Package preprocess prepares scanned form images for recognition.
// Low-contrast office scans and phone photos OCR poorly as-is; a short
// enhancement chain before recognition recovers a surprising amount of
// text.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// Options tunes the enhancement chain. The zero value disables every
// step; DefaultOptions gives the chain used for form scans.
type Options struct {
	// Contrast is the percentage contrast change, in (-100, 100].
	// Zero leaves contrast untouched.
	Contrast float64

	// Sharpen is the sharpening sigma; zero disables sharpening.
	Sharpen float64

	// BlurRadius is the gaussian blur radius applied after grayscale
	// conversion to suppress scanner noise; zero disables it.
	BlurRadius float64

	// Binarize converts the result to black and white at
	// BinarizeLevel, which helps tesseract on uneven backgrounds.
	Binarize      bool
	BinarizeLevel uint8
}

// DefaultOptions returns the enhancement chain tuned for printed
// intake forms.
func DefaultOptions() Options {
	return Options{
		Contrast:      25,
		Sharpen:       0.8,
		BlurRadius:    1.0,
		Binarize:      true,
		BinarizeLevel: 128,
	}
}

// Enhance runs the chain in fixed order: contrast, sharpen, grayscale,
// blur, threshold. Grayscale always runs; the other steps are skipped
// when their option is zero.
func Enhance(img image.Image, opts Options) image.Image {
	if opts.Contrast != 0 {
		img = imaging.AdjustContrast(img, opts.Contrast)
	}
	if opts.Sharpen > 0 {
		img = imaging.Sharpen(img, opts.Sharpen)
	}
	img = imaging.Grayscale(img)
	if opts.BlurRadius > 0 {
		img = blur.Gaussian(img, opts.BlurRadius)
	}
	if opts.Binarize {
		img = segment.Threshold(img, opts.BinarizeLevel)
	}
	return img
}

// Decode reads an encoded image from r, honoring EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// EncodePNG renders an image to PNG bytes for handoff to the OCR
// engine. PNG keeps the hard binarized edges lossless.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

// EnhanceBytes decodes, enhances, and re-encodes in one step for
// callers holding raw upload bytes.
func EnhanceBytes(data []byte, opts Options) ([]byte, error) {
	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return EncodePNG(Enhance(img, opts))
}

package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradientImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x * 255) / w)
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestEnhancePreservesDimensions(t *testing.T) {
	src := gradientImage(64, 48)
	out := Enhance(src, DefaultOptions())

	b := out.Bounds()
	assert.Equal(t, 64, b.Dx())
	assert.Equal(t, 48, b.Dy())
}

func TestEnhanceBinarizeProducesTwoLevels(t *testing.T) {
	src := gradientImage(64, 48)
	out := Enhance(src, Options{Binarize: true, BinarizeLevel: 128})

	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(out.At(x, y)).(color.Gray)
			if g.Y != 0 && g.Y != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, g.Y)
			}
		}
	}
}

func TestEnhanceZeroOptionsOnlyGrayscales(t *testing.T) {
	src := gradientImage(16, 16)
	out := Enhance(src, Options{})

	b := out.Bounds()
	assert.Equal(t, src.Bounds().Dx(), b.Dx())
	assert.Equal(t, src.Bounds().Dy(), b.Dy())
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := gradientImage(32, 32)

	data, err := EncodePNG(src)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	back, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 32, back.Bounds().Dx())
}

func TestEnhanceBytes(t *testing.T) {
	data, err := EncodePNG(gradientImage(20, 10))
	require.NoError(t, err)

	out, err := EnhanceBytes(data, DefaultOptions())
	require.NoError(t, err)

	img, err := Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestEnhanceBytesRejectsGarbage(t *testing.T) {
	_, err := EnhanceBytes([]byte("not an image"), DefaultOptions())
	assert.Error(t, err)
}

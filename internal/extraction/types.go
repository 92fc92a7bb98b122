package extraction

import (
	"encoding/json"
	"fmt"
)

// Point is a pixel coordinate in image space with the origin at the
// top-left corner of the image.
type Point struct {
	X float64
	Y float64
}

// MarshalJSON encodes the point as a two-element [x, y] array, the
// shape OCR engines and downstream UI highlighting expect.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a two-element [x, y] array.
func (p *Point) UnmarshalJSON(data []byte) error {
	var coords [2]float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("point must be a [x, y] array: %w", err)
	}
	p.X = coords[0]
	p.Y = coords[1]
	return nil
}

// Quad is the four-corner bounding quadrilateral of a detection, in the
// order the OCR engine emits the corners (typically top-left, top-right,
// bottom-right, bottom-left). Using a fixed-size array makes a
// malformed quadrilateral unrepresentable past this boundary.
type Quad [4]Point

// TopLeft returns the quad's position anchor: its first corner.
func (q Quad) TopLeft() Point { return q[0] }

// Detection is one raw OCR hit: a positioned quadrilateral, the
// recognized text (untrimmed), and a confidence score in [0,1].
type Detection struct {
	Quad       Quad
	Text       string
	Confidence float64
}

// TextBlock is a confidence-filtered, trimmed detection. Blocks are
// immutable once built and carry the full quadrilateral so callers can
// highlight regions downstream.
type TextBlock struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	BBox       Quad    `json:"bbox"`
}

// TopLeft returns the block's position anchor.
func (b TextBlock) TopLeft() Point { return b.BBox.TopLeft() }

// FieldMap maps snake-case field keys (e.g. "first_name", "email") to
// extracted string values.
type FieldMap map[string]string

// Record is the structured result of processing one image's detections.
type Record struct {
	Fields         FieldMap    `json:"extracted_fields"`
	RawText        string      `json:"raw_text"`
	Blocks         []TextBlock `json:"text_blocks"`
	Timestamp      string      `json:"timestamp"`
	MeanConfidence float64     `json:"total_confidence"`
}

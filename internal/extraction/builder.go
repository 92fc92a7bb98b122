package extraction

import (
	"sort"
	"strings"
)

// BuildBlocks converts raw OCR detections into confidence-filtered,
// reading-ordered text blocks.
//
// Detections with confidence at or below minConfidence are dropped.
// Surviving text is whitespace-trimmed; blocks whose trimmed text is
// empty are retained so callers can inspect low-value regions.
//
// The result is sorted by the anchor point: top to bottom, then left to
// right. Every positional heuristic downstream (adjacent-block lookup,
// text concatenation order) depends on this ordering, so the sort is
// stable.
func BuildBlocks(detections []Detection, minConfidence float64) []TextBlock {
	blocks := make([]TextBlock, 0, len(detections))
	for _, d := range detections {
		if d.Confidence <= minConfidence {
			continue
		}
		blocks = append(blocks, TextBlock{
			Text:       strings.TrimSpace(d.Text),
			Confidence: d.Confidence,
			BBox:       d.Quad,
		})
	}

	sort.SliceStable(blocks, func(i, j int) bool {
		a, b := blocks[i].TopLeft(), blocks[j].TopLeft()
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	return blocks
}

package extraction

import "time"

// Assemble packages ordered blocks and extracted fields into the final
// record. It always succeeds: empty input yields an empty, well-formed
// record with zero mean confidence, and the timestamp is captured once
// here, not per block.
func Assemble(blocks []TextBlock, fields FieldMap) Record {
	if blocks == nil {
		blocks = []TextBlock{}
	}
	if fields == nil {
		fields = FieldMap{}
	}

	meanConfidence := 0.0
	if len(blocks) > 0 {
		sum := 0.0
		for _, b := range blocks {
			sum += b.Confidence
		}
		meanConfidence = sum / float64(len(blocks))
	}

	return Record{
		Fields:         fields,
		RawText:        concatenateBlocks(blocks),
		Blocks:         blocks,
		Timestamp:      time.Now().Format(time.RFC3339),
		MeanConfidence: meanConfidence,
	}
}

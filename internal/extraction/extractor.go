package extraction

import (
	"fmt"
	"strings"
)

// Config tunes an extraction Engine. Zero-value fields fall back to
// the defaults used across the upload call sites.
type Config struct {
	// MinConfidence is the exclusive lower bound a detection's
	// confidence must exceed to become a text block. Call sites vary
	// between 0.2 and 0.5 depending on how noisy their sources are.
	MinConfidence float64

	// LabeledRules is the primary pattern table; nil selects
	// DefaultLabeledRules.
	LabeledRules []FieldRule

	// FallbackRules is the label-free gap-fill table; nil selects
	// DefaultFallbackRules.
	FallbackRules []FieldRule

	// AdjacencyFields is the token set for the adjacent-block
	// heuristic; nil selects DefaultAdjacencyFields.
	AdjacencyFields []string
}

// DefaultMinConfidence matches the most permissive upload call site;
// lower thresholds keep more text for the pattern tables to work with.
const DefaultMinConfidence = 0.2

// DefaultConfig returns the engine configuration used by the upload
// handler when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		MinConfidence:   DefaultMinConfidence,
		LabeledRules:    DefaultLabeledRules(),
		FallbackRules:   DefaultFallbackRules(),
		AdjacencyFields: DefaultAdjacencyFields(),
	}
}

// Engine turns raw OCR detections into structured, confidence-scored
// field records. It holds only compiled rule tables and a threshold:
// it is pure, keeps no per-image state, and is safe for concurrent use
// across images.
type Engine struct {
	minConfidence float64
	labeled       []compiledRule
	fallback      []compiledRule
	adjacency     []string
}

// NewEngine compiles the configured rule tables. Rule compilation is
// the only failure path; processing itself never fails.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.MinConfidence < 0 || cfg.MinConfidence >= 1 {
		return nil, fmt.Errorf("min confidence must be in [0, 1), got %g", cfg.MinConfidence)
	}

	labeledRules := cfg.LabeledRules
	if labeledRules == nil {
		labeledRules = DefaultLabeledRules()
	}
	fallbackRules := cfg.FallbackRules
	if fallbackRules == nil {
		fallbackRules = DefaultFallbackRules()
	}
	adjacency := cfg.AdjacencyFields
	if adjacency == nil {
		adjacency = DefaultAdjacencyFields()
	}

	labeled, err := compileRules(labeledRules)
	if err != nil {
		return nil, fmt.Errorf("labeled rules: %w", err)
	}
	fallback, err := compileRules(fallbackRules)
	if err != nil {
		return nil, fmt.Errorf("fallback rules: %w", err)
	}

	return &Engine{
		minConfidence: cfg.MinConfidence,
		labeled:       labeled,
		fallback:      fallback,
		adjacency:     adjacency,
	}, nil
}

// MinConfidence reports the engine's detection threshold.
func (e *Engine) MinConfidence() float64 { return e.minConfidence }

// BuildBlocks filters and orders detections using the engine's
// threshold.
func (e *Engine) BuildBlocks(detections []Detection) []TextBlock {
	return BuildBlocks(detections, e.minConfidence)
}

// ExtractFields runs the three extraction strategies against the
// ordered blocks, in fixed priority order:
//
//  1. Labeled patterns against the concatenated text. A label and its
//     value frequently span adjacent detections, so matching is never
//     per-block. First match per field wins; no overwrites.
//  2. Fallback shape-only patterns, filling only fields still absent.
//  3. The adjacent-block heuristic, which may overwrite: when a label
//     and value were split across detections, positional adjacency is
//     stronger evidence than a regex spanning noisy concatenated text.
func (e *Engine) ExtractFields(blocks []TextBlock) FieldMap {
	fields := FieldMap{}
	if len(blocks) == 0 {
		return fields
	}

	text := concatenateBlocks(blocks)

	for _, rule := range e.labeled {
		if _, done := fields[rule.field]; done {
			continue
		}
		if value, ok := rule.findValue(text); ok {
			fields[rule.field] = value
		}
	}

	for _, rule := range e.fallback {
		if _, done := fields[rule.field]; done {
			continue
		}
		if value, ok := rule.findValue(text); ok {
			fields[rule.field] = value
		}
	}

	for i, block := range blocks {
		lower := strings.ToLower(block.Text)
		if !strings.Contains(lower, ":") {
			continue
		}
		if i+1 >= len(blocks) {
			continue
		}
		for _, field := range e.adjacency {
			if !strings.Contains(lower, field) {
				continue
			}
			value := strings.TrimSpace(blocks[i+1].Text)
			if len(value) > 1 {
				fields[field] = value
			}
		}
	}

	return fields
}

// Process runs the full per-image pipeline: build blocks, extract
// fields, assemble the record.
func (e *Engine) Process(detections []Detection) Record {
	blocks := e.BuildBlocks(detections)
	return Assemble(blocks, e.ExtractFields(blocks))
}

// concatenateBlocks joins block texts with single spaces in block
// order. Assemble uses the same join so a record's raw_text is exactly
// the text the pattern tables matched against.
func concatenateBlocks(blocks []TextBlock) string {
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.Text
	}
	return strings.Join(texts, " ")
}

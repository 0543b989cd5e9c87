// Package evidence provides the provenance primitives for the extraction
// pipeline. Every field value and validation finding references Evidence
// records instead of raw OCR text, so each downstream decision can point
// back to the page region it was derived from.
package evidence

// Method identifies how a value was extracted from a document.
type Method string

// Extraction methods.
const (
	MethodPattern Method = "pattern"
	MethodRegex   Method = "regex"
	MethodLLM     Method = "llm"
)

// Bounds is a rectangular page region in layout coordinates.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutBlock is one positioned text block produced by the external
// OCR/layout engine. Blocks are input only and never mutated.
type LayoutBlock struct {
	ID         string  `json:"id"`
	Page       int     `json:"page"`
	Bounds     Bounds  `json:"bounds"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Evidence binds a value to its provenance: the page and region it came
// from, the snippet that produced it, and the extraction method. Records
// are immutable after creation.
type Evidence struct {
	Page       int     `json:"page"`
	Bounds     Bounds  `json:"bounds"`
	Snippet    string  `json:"snippet"`
	Confidence float64 `json:"confidence"`
	Method     Method  `json:"method"`
	BlockID    string  `json:"block_id"`
}

// FromBlock creates an Evidence record citing the given block.
// Confidence combines the block's OCR confidence with the extractor's
// own certainty by taking the lower of the two.
func FromBlock(block LayoutBlock, snippet string, confidence float64, method Method) Evidence {
	if block.Confidence > 0 && block.Confidence < confidence {
		confidence = block.Confidence
	}
	return Evidence{
		Page:       block.Page,
		Bounds:     block.Bounds,
		Snippet:    snippet,
		Confidence: confidence,
		Method:     method,
		BlockID:    block.ID,
	}
}

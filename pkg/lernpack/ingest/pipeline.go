package ingest

import (
	"fmt"
	"strings"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// Pipeline orchestrates the ingestion flow:
// source → text extraction → segmentation → signal extraction
type Pipeline struct {
	extractor     *SignalExtractor
	maxChunkChars int
}

// NewPipeline creates an ingestion pipeline with the given components
func NewPipeline(extractor *SignalExtractor, maxChunkChars int) *Pipeline {
	return &Pipeline{
		extractor:     extractor,
		maxChunkChars: maxChunkChars,
	}
}

// ProcessedDoc represents a source after ingestion processing
type ProcessedDoc struct {
	Text    string
	Chunks  []TextChunk
	Signals []ExtractedSignal
}

// Process runs a source through the full ingestion pipeline
func (p *Pipeline) Process(src Source, scenario string) (ProcessedDoc, error) {
	if err := src.Validate(); err != nil {
		return ProcessedDoc{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidInput, err)
	}

	// 1. Extract flat text
	text := ExtractText(src.Body)
	if src.IsHTML() {
		var err error
		if text, err = ExtractHTML(strings.NewReader(src.Body)); err != nil {
			return ProcessedDoc{}, err
		}
	}

	// 2. Segment into content-addressed chunks
	chunks := Segment(text, p.maxChunkChars)

	// 3. Per-chunk signals
	signals := p.extractor.ExtractAll(chunks, scenario)

	return ProcessedDoc{
		Text:    text,
		Chunks:  chunks,
		Signals: signals,
	}, nil
}

package ingest

// TextChunk is a contiguous, content-addressed piece of extracted text.
// CharStart and CharEnd are byte offsets into the extracted text.
type TextChunk struct {
	ChunkID        string `json:"chunkId"`
	Text           string `json:"text"`
	NormalizedText string `json:"normalizedText"`
	CharStart      int    `json:"charStart"`
	CharEnd        int    `json:"charEnd"`
}

// TokenCount is one frequency observation.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Entity types recognized by the signal extractor.
const (
	EntityDate        = "date"
	EntityTime        = "time"
	EntityMoney       = "money"
	EntityAddress     = "address"
	EntityCapitalized = "capitalized"
)

// Entity is a recognized span; Position is a byte offset into the chunk text.
type Entity struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Position int    `json:"position"`
}

// ExtractedSignal summarizes one chunk for planning and generation.
type ExtractedSignal struct {
	ChunkID          string       `json:"chunkId"`
	TopTokens        []string     `json:"topTokens"`
	DetectedIntents  []string     `json:"detectedIntents"`
	Evidence         []TokenCount `json:"evidence"`
	Entities         []Entity     `json:"entities"`
	ActionVerbs      []string     `json:"actionVerbs"`
	QuestionPatterns bool         `json:"questionPatterns"`
}

// PrimaryIntent returns the first detected intent.
func (s ExtractedSignal) PrimaryIntent() string {
	if len(s.DetectedIntents) == 0 {
		return ""
	}
	return s.DetectedIntents[0]
}

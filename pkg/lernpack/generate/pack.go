package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

// SessionStep orders prompts into one practice step.
type SessionStep struct {
	StepID    string   `json:"stepId"`
	Title     string   `json:"title"`
	PromptIDs []string `json:"promptIds"`
}

// Analytics describes the pedagogical intent of a pack.
type Analytics struct {
	Goal            string   `json:"goal"`
	Constraints     []string `json:"constraints"`
	Levers          []string `json:"levers"`
	SuccessCriteria []string `json:"successCriteria"`
	CommonMistakes  []string `json:"commonMistakes"`
	DrillType       string   `json:"drillType"`
	CognitiveLoad   string   `json:"cognitiveLoad"`
}

// IngestionMetadata records where a draft came from. It is removed when a
// pack is promoted.
type IngestionMetadata struct {
	Source      string    `json:"source"`
	ChunkIDs    []string  `json:"chunkIds"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// DraftPack is a generated pack awaiting review.
type DraftPack struct {
	ID                string             `json:"id"`
	Title             string             `json:"title"`
	Level             string             `json:"level"`
	Scenario          string             `json:"scenario"`
	Register          string             `json:"register"`
	PrimaryStructure  string             `json:"primaryStructure"`
	VariationSlots    []string           `json:"variationSlots"`
	Outline           []string           `json:"outline"`
	Prompts           []DraftPrompt      `json:"prompts"`
	SessionPlan       []SessionStep      `json:"sessionPlan"`
	Tags              []string           `json:"tags"`
	Analytics         Analytics          `json:"analytics"`
	IngestionMetadata *IngestionMetadata `json:"_ingestionMetadata,omitempty"`
}

// Promoted returns a copy of the pack without ingestion metadata.
func (p DraftPack) Promoted() DraftPack {
	p.IngestionMetadata = nil
	return p
}

// PackRequest extends Request with the provenance stored on the draft.
type PackRequest struct {
	Request
	Source      string
	GeneratedAt time.Time
}

// GeneratePack drafts the prompts of a planned pack and assembles the
// reviewable DraftPack around them.
func (g *Generator) GeneratePack(req PackRequest) (*DraftPack, error) {
	prompts, err := g.GeneratePrompts(req.Request)
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", req.Pack.PackID, err)
	}

	tpl := req.Template
	plan := sessionPlan(tpl, prompts)
	outline := make([]string, len(plan))
	for i, s := range plan {
		outline[i] = s.Title
	}

	register := req.Pack.Register
	if register == "" {
		register = tpl.DefaultRegister
	}

	meta := &IngestionMetadata{
		Source:      req.Source,
		ChunkIDs:    append([]string(nil), req.Pack.TargetChunks...),
		GeneratedAt: req.GeneratedAt.UTC(),
	}

	return &DraftPack{
		ID:                req.Pack.PackID,
		Title:             req.Pack.Title,
		Level:             req.Level,
		Scenario:          req.Scenario,
		Register:          register,
		PrimaryStructure:  req.Pack.PrimaryStructure,
		VariationSlots:    append([]string(nil), req.Pack.VariationSlots...),
		Outline:           outline,
		Prompts:           prompts,
		SessionPlan:       plan,
		Tags:              append([]string(nil), req.Pack.Tags...),
		Analytics:         g.analytics(req, register),
		IngestionMetadata: meta,
	}, nil
}

func sessionPlan(tpl *template.Template, prompts []DraftPrompt) []SessionStep {
	byStep := make(map[string][]string)
	for _, p := range prompts {
		byStep[p.StepID] = append(byStep[p.StepID], p.ID)
	}
	plan := make([]SessionStep, 0, len(tpl.StepBlueprint))
	for _, step := range tpl.StepBlueprint {
		ids := byStep[step.ID]
		if len(ids) == 0 {
			continue
		}
		plan = append(plan, SessionStep{StepID: step.ID, Title: step.Title, PromptIDs: ids})
	}
	return plan
}

func (g *Generator) analytics(req PackRequest, register string) Analytics {
	tpl := req.Template
	goal := tpl.Goal
	if goal == "" {
		goal = req.Pack.Title
	}
	mistakes := append([]string(nil), tpl.CommonMistakes...)
	if len(mistakes) == 0 {
		mistakes = []string{"Verb agreement with the subject"}
	}

	return Analytics{
		Goal: goal,
		Constraints: []string{
			fmt.Sprintf("Prompts are %d to %d characters long", MinPromptLen, MaxPromptLen),
			fmt.Sprintf("Each prompt uses at least %d %s scenario words", g.opts.MinTokenHits, strings.ReplaceAll(req.Scenario, "_", " ")),
			"Register: " + register,
		},
		Levers: append([]string(nil), tpl.VariationSlots...),
		SuccessCriteria: []string{
			"Learner says every prompt aloud without reading",
			"Learner swaps at least two slots on request",
		},
		CommonMistakes: mistakes,
		DrillType:      "slot_substitution",
		CognitiveLoad:  cognitiveLoad(req.Level),
	}
}

func cognitiveLoad(level string) string {
	switch strings.ToUpper(level) {
	case "A1", "A2":
		return "low"
	case "B1", "B2":
		return "medium"
	case "C1", "C2":
		return "high"
	}
	return "medium"
}

package report

import (
	"fmt"

	"github.com/cognicore/lernpack/pkg/lernpack/quality"
)

var editAdvice = map[string]string{
	quality.RulePromptCount:         "Regenerate packs that came out without prompts.",
	quality.RuleScenarioTokens:      "Add scenario vocabulary so every prompt uses at least two scenario words.",
	quality.RuleBannedPhrases:       "Replace generic filler phrases with situation-specific wording.",
	quality.RulePromptLength:        "Shorten or extend prompts to 12-140 characters.",
	quality.RuleNaturalENRequired:   "Write a natural English paraphrase (natural_en) for every prompt.",
	quality.RuleMultiSlotVariation:  "Change at least two slots between consecutive prompts in 30% of the pack.",
	quality.RuleRegisterConsistency: "Address the learner with Sie or Ihnen in formal packs.",
	quality.RuleConcretenessMarkers: "Add concrete times, prices or numbers to at least two prompts.",
	quality.RuleVerbVariation:       "Use more than one verb across the pack.",
}

// RecommendedEdits returns one line per rule that failed or warned, in
// rule order, with the number of affected items.
func RecommendedEdits(failures, warnings []quality.Issue) []string {
	counts := make(map[string]int)
	for _, list := range [][]quality.Issue{failures, warnings} {
		for _, is := range list {
			counts[is.Rule]++
		}
	}
	edits := []string{}
	for _, rule := range quality.Rules {
		n, ok := counts[rule]
		if !ok {
			continue
		}
		edits = append(edits, fmt.Sprintf("%s (%d): %s", rule, n, editAdvice[rule]))
	}
	return edits
}

// Package template defines the typed scenario template schema used by the
// draft generator. Templates are validated when loaded; a template that
// passes Validate can be sampled without further checks.
package template

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// Slot names.
const (
	SlotSubject  = "subject"
	SlotVerb     = "verb"
	SlotObject   = "object"
	SlotModifier = "modifier"
	SlotTime     = "time"
	SlotLocation = "location"
)

// Registers.
const (
	RegisterFormal   = "formal"
	RegisterNeutral  = "neutral"
	RegisterInformal = "informal"
)

var knownSlots = map[string]struct{}{
	SlotSubject: {}, SlotVerb: {}, SlotObject: {},
	SlotModifier: {}, SlotTime: {}, SlotLocation: {},
}

// SlotBanks holds the candidate values per slot.
type SlotBanks struct {
	Subjects  []string `json:"subjects" yaml:"subjects"`
	Verbs     []string `json:"verbs" yaml:"verbs"`
	Objects   []string `json:"objects" yaml:"objects"`
	Modifiers []string `json:"modifiers" yaml:"modifiers"`
	Time      []string `json:"time" yaml:"time"`
	Location  []string `json:"location" yaml:"location"`
}

// Values returns the bank of a slot name, or nil for an unknown slot.
func (b SlotBanks) Values(slot string) []string {
	switch slot {
	case SlotSubject:
		return b.Subjects
	case SlotVerb:
		return b.Verbs
	case SlotObject:
		return b.Objects
	case SlotModifier:
		return b.Modifiers
	case SlotTime:
		return b.Time
	case SlotLocation:
		return b.Location
	}
	return nil
}

// StepRules constrains the prompts of one step.
type StepRules struct {
	RequiredSlots []string `json:"requiredSlots,omitempty" yaml:"requiredSlots,omitempty"`
}

// Step is one entry of the step blueprint.
type Step struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	PromptCount int        `json:"promptCount" yaml:"promptCount"`
	Rules       *StepRules `json:"rules,omitempty" yaml:"rules,omitempty"`
}

// Slots returns the slot order of the step, falling back to fallback when
// the step has no required slots.
func (s Step) Slots(fallback []string) []string {
	if s.Rules != nil && len(s.Rules.RequiredSlots) > 0 {
		return s.Rules.RequiredSlots
	}
	return fallback
}

// Template describes how prompts of one scenario are built.
type Template struct {
	ScenarioID       string    `json:"scenarioId" yaml:"scenarioId"`
	DefaultRegister  string    `json:"defaultRegister" yaml:"defaultRegister"`
	PrimaryStructure string    `json:"primaryStructure" yaml:"primaryStructure"`
	VariationSlots   []string  `json:"variationSlots" yaml:"variationSlots"`
	SlotBanks        SlotBanks `json:"slotBanks" yaml:"slotBanks"`
	RequiredTokens   []string  `json:"requiredTokens" yaml:"requiredTokens"`
	StepBlueprint    []Step    `json:"stepBlueprint" yaml:"stepBlueprint"`
	Goal             string    `json:"goal,omitempty" yaml:"goal,omitempty"`
	CommonMistakes   []string  `json:"commonMistakes,omitempty" yaml:"commonMistakes,omitempty"`
}

// PromptCount is the number of prompts the blueprint produces.
func (t *Template) PromptCount() int {
	n := 0
	for _, s := range t.StepBlueprint {
		n += s.PromptCount
	}
	return n
}

// Validate reports every structural problem of the template at once.
func (t *Template) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(t.ScenarioID) == "" {
		fail("scenarioId is required")
	}
	switch t.DefaultRegister {
	case RegisterFormal, RegisterNeutral, RegisterInformal:
	default:
		fail("defaultRegister %q must be formal, neutral or informal", t.DefaultRegister)
	}
	if len(t.VariationSlots) == 0 {
		fail("variationSlots must not be empty")
	}

	used := map[string]struct{}{SlotSubject: {}, SlotVerb: {}}
	for _, slot := range t.VariationSlots {
		if _, ok := knownSlots[slot]; !ok {
			fail("variationSlots: unknown slot %q", slot)
			continue
		}
		used[slot] = struct{}{}
	}

	if len(t.StepBlueprint) == 0 {
		fail("stepBlueprint must not be empty")
	}
	seen := make(map[string]struct{})
	for i, step := range t.StepBlueprint {
		if step.ID == "" {
			fail("stepBlueprint[%d]: id is required", i)
		} else if _, dup := seen[step.ID]; dup {
			fail("stepBlueprint[%d]: duplicate id %q", i, step.ID)
		}
		seen[step.ID] = struct{}{}
		if step.PromptCount <= 0 {
			fail("stepBlueprint[%d]: promptCount must be positive", i)
		}
		if step.Rules == nil {
			continue
		}
		for _, slot := range step.Rules.RequiredSlots {
			if _, ok := knownSlots[slot]; !ok {
				fail("stepBlueprint[%d]: unknown slot %q", i, slot)
				continue
			}
			used[slot] = struct{}{}
		}
	}

	for _, slot := range []string{SlotSubject, SlotVerb, SlotObject, SlotModifier, SlotTime, SlotLocation} {
		if _, ok := used[slot]; !ok {
			continue
		}
		values := t.SlotBanks.Values(slot)
		if len(values) == 0 {
			fail("slotBanks: bank for slot %q is empty", slot)
		}
		for _, v := range values {
			if strings.TrimSpace(v) == "" {
				fail("slotBanks: blank value in bank for slot %q", slot)
				break
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	name := t.ScenarioID
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Errorf("%w: template %s: %w", internalerr.ErrInvalidConfig, name, errors.Join(errs...))
}

// Parse decodes a JSON or YAML template and validates it. Unknown fields
// are rejected.
func Parse(data []byte) (*Template, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var t Template
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty template", internalerr.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadFile reads and validates a template file. A missing file yields
// ErrTemplateNotFound.
func LoadFile(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", internalerr.ErrTemplateNotFound, path)
		}
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", path, err)
	}
	return t, nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

func TestLoaderAllEmpty(t *testing.T) {
	comp, err := (&Loader{}).Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Lexicon == nil {
		t.Fatal("Should have the default lexicon")
	}
	if !comp.Lexicon.HasScenario("government_office") {
		t.Error("Default lexicon should know government_office")
	}
	if _, err := comp.Templates.Get("doctor"); err != nil {
		t.Errorf("Builtin doctor template missing: %v", err)
	}
}

func TestLoaderNonExistentLexicon(t *testing.T) {
	loader := Loader{LexiconPath: "/nonexistent/lexicon.yaml"}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent lexicon")
	}
}

func TestLoaderNonExistentTemplatesDir(t *testing.T) {
	loader := Loader{TemplatesDir: "/nonexistent/templates"}
	if _, err := loader.Load(); err == nil {
		t.Error("Should error on nonexistent templates dir")
	}
}

func TestLoaderValidFiles(t *testing.T) {
	tmpDir := t.TempDir()

	lexPath := filepath.Join(tmpDir, "lexicon.yaml")
	lexYAML := `stopwords: [der, die, das]
bannedPhrases: ["in today's lesson"]
scenarios:
  bakery:
    tokens: [brot, brötchen, bäckerei]
`
	if err := os.WriteFile(lexPath, []byte(lexYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	tplDir := filepath.Join(tmpDir, "templates")
	if err := os.Mkdir(tplDir, 0o755); err != nil {
		t.Fatal(err)
	}
	tplYAML := `scenarioId: bakery
defaultRegister: neutral
primaryStructure: subject_verb_object
variationSlots: [subject, verb, object]
slotBanks:
  subjects: [Ich, Wir]
  verbs: [kaufen, möchten]
  objects: [ein Brot in der Bäckerei, zwei Brötchen]
stepBlueprint:
  - id: theke
    title: An der Theke
    promptCount: 4
`
	if err := os.WriteFile(filepath.Join(tplDir, "bakery.yaml"), []byte(tplYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	comp, err := (&Loader{LexiconPath: lexPath, TemplatesDir: tplDir}).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !comp.Lexicon.IsStopword("der") {
		t.Error("Loaded lexicon should carry file stopwords")
	}
	if comp.Lexicon.HasScenario("government_office") {
		t.Error("File lexicon should replace the default, not merge")
	}

	tpl, err := comp.Templates.Get("bakery")
	if err != nil {
		t.Fatalf("Get bakery: %v", err)
	}
	if tpl.PromptCount() != 4 {
		t.Errorf("PromptCount = %d, want 4", tpl.PromptCount())
	}
	if _, err := comp.Templates.Get("doctor"); err != nil {
		t.Errorf("Builtins should stay available: %v", err)
	}

	builtins, err := template.Builtins()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := builtins.Get("bakery"); !errors.Is(err, internalerr.ErrTemplateNotFound) {
		t.Error("Overlay must not leak into the shared builtin registry")
	}
}

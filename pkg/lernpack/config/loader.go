// Package config composes the language content a run needs (lexicon and
// scenario templates) from files, falling back to the embedded defaults.
package config

import (
	"fmt"

	"github.com/cognicore/lernpack/pkg/lernpack/lexicon"
	"github.com/cognicore/lernpack/pkg/lernpack/template"
)

// Loader loads all content files and constructs components.
type Loader struct {
	// LexiconPath replaces the embedded lexicon when set.
	LexiconPath string
	// TemplatesDir overlays the built-in templates when set. A file for
	// an existing scenario replaces the built-in one.
	TemplatesDir string
}

// Components holds the loaded content.
type Components struct {
	Lexicon   *lexicon.Lexicon
	Templates *template.Registry
}

// Load reads the configured files and returns initialized components.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{}

	if l.LexiconPath != "" {
		lex, err := lexicon.Load(l.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		comp.Lexicon = lex
	} else {
		lex, err := lexicon.Default()
		if err != nil {
			return nil, fmt.Errorf("load default lexicon: %w", err)
		}
		comp.Lexicon = lex
	}

	builtins, err := template.Builtins()
	if err != nil {
		return nil, fmt.Errorf("load builtin templates: %w", err)
	}
	if l.TemplatesDir == "" {
		comp.Templates = builtins
		return comp, nil
	}

	reg := builtins.Clone()
	if err := reg.LoadDir(l.TemplatesDir); err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	comp.Templates = reg
	return comp, nil
}

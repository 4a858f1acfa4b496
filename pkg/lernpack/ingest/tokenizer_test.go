package ingest

import (
	"strings"
	"testing"
)

func TestTokenizerBasic(t *testing.T) {
	tokenizer := NewTokenizer([]string{"der", "das", "ist"})

	tokens := tokenizer.Tokenize("Das Formular ist beim Amt, der Termin morgen.")

	expected := []string{"formular", "beim", "amt", "termin", "morgen"}
	if len(tokens) != len(expected) {
		t.Fatalf("Expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, tok := range expected {
		if tokens[i] != tok {
			t.Errorf("token %d: expected %q, got %q", i, tok, tokens[i])
		}
	}
}

func TestTokenizerDropsShortTokens(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("Ab zu da wo Uhr")
	if len(tokens) != 1 || tokens[0] != "uhr" {
		t.Errorf("Only tokens longer than two characters should survive, got %v", tokens)
	}
}

func TestTokenizerUmlautLength(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	// "für" is three runes but four bytes
	tokens := tokenizer.Tokenize("für öl")
	if len(tokens) != 1 || tokens[0] != "für" {
		t.Errorf("Length rule must count runes, got %v", tokens)
	}
}

func TestTokenizerHyphens(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	tokens := tokenizer.Tokenize("--E-Mail-- Adresse")
	if len(tokens) != 2 || tokens[0] != "e-mail" {
		t.Errorf("Hyphenated words should be cleaned and preserved, got %v", tokens)
	}
}

func TestTokenizerCaseNormalization(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	for _, tok := range tokenizer.Tokenize("BÜRGERAMT Anmeldung FORMULAR") {
		if tok != strings.ToLower(tok) {
			t.Errorf("Token %s should be lowercased", tok)
		}
	}
}

func TestTokenizerEmptyInput(t *testing.T) {
	tokenizer := NewTokenizer(nil)

	if tokens := tokenizer.Tokenize(""); len(tokens) != 0 {
		t.Error("Empty input should produce empty output")
	}
}

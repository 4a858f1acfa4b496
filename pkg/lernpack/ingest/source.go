package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// SourceKind names where ingested text came from.
type SourceKind string

const (
	SourceText SourceKind = "text"
	SourceFile SourceKind = "file"
	SourceHTML SourceKind = "html"
	SourceURL  SourceKind = "url"
)

// Source is one raw input document.
type Source struct {
	Kind     SourceKind
	Location string // file path or URL; empty for inline text
	Body     string
}

// Validate checks if the source has required fields
func (s *Source) Validate() error {
	switch s.Kind {
	case SourceText:
	case SourceFile, SourceHTML, SourceURL:
		if strings.TrimSpace(s.Location) == "" {
			return fmt.Errorf("%s source location is required", s.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}

	if strings.TrimSpace(s.Body) == "" {
		return errors.New("source body is required")
	}

	return nil
}

// IsHTML reports whether the body must go through the HTML extractor.
func (s *Source) IsHTML() bool {
	if s.Kind == SourceHTML || s.Kind == SourceURL {
		return true
	}
	lower := strings.ToLower(s.Location)
	return s.Kind == SourceFile && (strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm"))
}

// Label identifies the source in ingestion metadata and reports.
func (s *Source) Label() string {
	if s.Location == "" {
		return string(s.Kind)
	}
	return string(s.Kind) + ":" + s.Location
}

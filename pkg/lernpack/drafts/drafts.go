// Package drafts stores draft packs as JSON files in the workspace tree
// <root>/<workspace>/drafts/<scenario>/<packId>.json.
package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cognicore/lernpack/pkg/lernpack/generate"
	"github.com/cognicore/lernpack/pkg/lernpack/internalerr"
)

// Dir is the directory name holding drafts inside a workspace.
const Dir = "drafts"

// Writer writes draft packs below a content root.
type Writer struct {
	root string
}

// NewWriter creates a writer rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Path returns the file a pack is stored in.
func (w *Writer) Path(workspace, scenario, packID string) string {
	return filepath.Join(w.root, workspace, Dir, scenario, packID+".json")
}

// Write stores pack once. A pack id that already has a file yields
// ErrDuplicate and the existing file is left alone.
func (w *Writer) Write(workspace string, pack *generate.DraftPack) (string, error) {
	for _, part := range []string{workspace, pack.Scenario, pack.ID} {
		if err := checkName(part); err != nil {
			return "", err
		}
	}

	path := w.Path(workspace, pack.Scenario, pack.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create draft dir: %w", err)
	}

	data, err := json.MarshalIndent(pack, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode draft %s: %w", pack.ID, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("%w: draft %s", internalerr.ErrDuplicate, path)
		}
		return "", fmt.Errorf("create draft %s: %w", path, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return "", fmt.Errorf("write draft %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close draft %s: %w", path, err)
	}
	return path, nil
}

// List returns the draft files of a workspace scenario in name order.
func (w *Writer) List(workspace, scenario string) ([]string, error) {
	dir := filepath.Join(w.root, workspace, Dir, scenario)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// Read loads a draft pack file.
func Read(path string) (*generate.DraftPack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", internalerr.ErrNotFound, path)
		}
		return nil, err
	}
	var pack generate.DraftPack
	if err := json.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("%w: draft %s: %v", internalerr.ErrInvalidInput, path, err)
	}
	return &pack, nil
}

func checkName(part string) error {
	if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
		return fmt.Errorf("%w: path component %q", internalerr.ErrInvalidInput, part)
	}
	return nil
}

package prompt

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Fallback is returned for doc types without an instruction file.
const Fallback = "You are a helpful assistant helping fill out a legal document."

const ext = ".txt"

// Registry serves per-document-type instructions from <dir>/<doc_type>.txt.
// Files are read on every lookup so edits apply without a restart.
type Registry struct {
	dir string
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Load returns the instruction for docType, or Fallback when the file is
// absent, unreadable, or docType is not a plain file name.
func (r *Registry) Load(docType string) string {
	path, ok := r.path(docType)
	if !ok {
		return Fallback
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Fallback
	}
	return string(data)
}

// List returns the doc types that have an instruction file, sorted.
func (r *Registry) List() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	types := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		types = append(types, strings.TrimSuffix(e.Name(), ext))
	}
	sort.Strings(types)
	return types, nil
}

func (r *Registry) path(docType string) (string, bool) {
	if docType == "" || docType == "." || docType == ".." {
		return "", false
	}
	if strings.ContainsAny(docType, `/\`) || strings.Contains(docType, "..") {
		return "", false
	}
	return filepath.Join(r.dir, docType+ext), true
}

package implementation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-docfill-be/internal/repository/contract"

	"github.com/google/uuid"
)

const (
	sourceSuffix = ".docx"
	filledSuffix = "_filled.docx"
)

var ErrInvalidFileID = errors.New("invalid file id")

// ArtifactRepositoryImpl stores <id>.docx and <id>_filled.docx side by side
// in one directory.
type ArtifactRepositoryImpl struct {
	dir string
}

func NewArtifactRepository(dir string) (contract.ArtifactRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &ArtifactRepositoryImpl{dir: dir}, nil
}

func (r *ArtifactRepositoryImpl) NewID() string {
	return uuid.New().String()
}

// File ids are always UUIDs, which also keeps them from escaping dir.
func (r *ArtifactRepositoryImpl) validate(fileID string) error {
	if _, err := uuid.Parse(fileID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidFileID, fileID)
	}
	return nil
}

func (r *ArtifactRepositoryImpl) SourcePath(fileID string) (string, error) {
	if err := r.validate(fileID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, fileID+sourceSuffix), nil
}

func (r *ArtifactRepositoryImpl) FilledPath(fileID string) (string, error) {
	if err := r.validate(fileID); err != nil {
		return "", err
	}
	return filepath.Join(r.dir, fileID+filledSuffix), nil
}

func (r *ArtifactRepositoryImpl) Exists(fileID string) bool {
	path, err := r.SourcePath(fileID)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func (r *ArtifactRepositoryImpl) Remove(fileID string) error {
	src, err := r.SourcePath(fileID)
	if err != nil {
		return err
	}
	filled, _ := r.FilledPath(fileID)

	var errs []error
	for _, p := range []string{src, filled} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *ArtifactRepositoryImpl) Sweep(cutoff time.Time, keep func(fileID string) bool) (int, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sourceSuffix) || strings.HasSuffix(name, filledSuffix) {
			continue
		}
		fileID := strings.TrimSuffix(name, sourceSuffix)
		if r.validate(fileID) != nil {
			continue
		}

		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if keep != nil && keep(fileID) {
			continue
		}
		if err := r.Remove(fileID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

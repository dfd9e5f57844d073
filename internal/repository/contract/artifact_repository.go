package contract

import "time"

// ArtifactRepository maps a file id to the converted source document and
// the rendered output on local disk.
type ArtifactRepository interface {
	NewID() string
	SourcePath(fileID string) (string, error)
	FilledPath(fileID string) (string, error)
	Exists(fileID string) bool
	Remove(fileID string) error
	// Sweep removes artifacts last modified before cutoff, except those keep
	// reports true for, and returns how many file ids were removed. keep may
	// be nil.
	Sweep(cutoff time.Time, keep func(fileID string) bool) (int, error)
}

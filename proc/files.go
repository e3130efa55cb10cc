package proc

import (
	"os"
	"path/filepath"
)

// FileService is the file-access collaborator injected into wrappers so
// they stay ignorant of path-resolution concerns.
type FileService interface {
	Exists(path string) bool
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Resolve(path string) (string, error)
}

// OSFileService is the production FileService rooted at a project directory.
type OSFileService struct {
	root string
}

// NewOSFileService creates a FileService rooted at dir. An empty dir
// means paths resolve relative to the process working directory.
func NewOSFileService(dir string) *OSFileService {
	return &OSFileService{root: dir}
}

// Exists reports whether the path exists.
func (s *OSFileService) Exists(path string) bool {
	resolved, err := s.Resolve(path)
	if err != nil {
		return false
	}
	_, err = os.Stat(resolved)
	return err == nil
}

// Read returns the file contents.
func (s *OSFileService) Read(path string) ([]byte, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(resolved) // #nosec G304 -- path resolved under project root
}

// Write writes the file with 0600 permissions.
func (s *OSFileService) Write(path string, data []byte) error {
	resolved, err := s.Resolve(path)
	if err != nil {
		return err
	}
	return os.WriteFile(resolved, data, 0o600)
}

// Resolve returns the absolute form of path, anchored at the service root
// when path is relative.
func (s *OSFileService) Resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	if s.root != "" {
		return filepath.Abs(filepath.Join(s.root, path))
	}
	return filepath.Abs(path)
}

package uploads

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Stager writes multipart uploads to a temporary staging directory so they
// can be handed to the media host as regular files. Staged files must be
// removed synchronously once the upload attempt finishes, whatever its
// outcome.
type Stager struct {
	dir string
}

// NewStager ensures the staging directory exists.
func NewStager(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	return &Stager{dir: dir}, nil
}

// StagedFile is a multipart upload persisted to the staging directory.
type StagedFile struct {
	Path        string
	Name        string
	ContentType string
	Size        int64
}

// Stage copies the uploaded part into the staging directory under a unique
// name that keeps the original extension.
func (s *Stager) Stage(file multipart.File, header *multipart.FileHeader) (StagedFile, error) {
	name := uuid.NewString() + filepath.Ext(header.Filename)
	dest := filepath.Join(s.dir, name)

	out, err := os.Create(dest)
	if err != nil {
		return StagedFile{}, fmt.Errorf("create staged file: %w", err)
	}

	size, err := io.Copy(out, file)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return StagedFile{}, fmt.Errorf("write staged file: %w", err)
	}

	return StagedFile{
		Path:        dest,
		Name:        name,
		ContentType: header.Header.Get("Content-Type"),
		Size:        size,
	}, nil
}

// Open re-opens the staged file for reading.
func (f StagedFile) Open() (io.ReadSeekCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	return file, nil
}

// Remove deletes the staged file from disk.
func (f StagedFile) Remove() error {
	if f.Path == "" {
		return nil
	}
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove staged file: %w", err)
	}
	return nil
}

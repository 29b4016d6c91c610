package writer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/sirupsen/logrus"
)

// FileSystemWriter persists records as files in a results directory, one
// file per result, container and attachment.
type FileSystemWriter struct {
	dir string
	log logrus.FieldLogger
}

// NewFileSystemWriter creates the results directory if needed.
func NewFileSystemWriter(log logrus.FieldLogger, dir string) (*FileSystemWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:gosec // G301: results directory is shared with report tooling
		return nil, fmt.Errorf("creating results directory %s: %w", dir, err)
	}

	return &FileSystemWriter{
		dir: dir,
		log: log.WithField("component", "fs_writer"),
	}, nil
}

// Dir returns the results directory.
func (w *FileSystemWriter) Dir() string {
	return w.dir
}

// WriteResult implements Writer.
func (w *FileSystemWriter) WriteResult(result *model.TestResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result %s: %w", result.UUID, err)
	}
	return w.createExclusive(ResultFileName(result.UUID), payload)
}

// WriteGroup implements Writer.
func (w *FileSystemWriter) WriteGroup(container *model.TestResultContainer) error {
	payload, err := json.Marshal(container)
	if err != nil {
		return fmt.Errorf("encoding container %s: %w", container.UUID, err)
	}
	return w.createExclusive(ContainerFileName(container.UUID), payload)
}

// WriteAttachment implements Writer.
func (w *FileSystemWriter) WriteAttachment(source string, content []byte) error {
	name, err := attachmentFileName(source)
	if err != nil {
		return err
	}
	return w.createExclusive(name, content)
}

// WriteAttachmentFromPath copies the file at path into the results directory.
func (w *FileSystemWriter) WriteAttachmentFromPath(source, path string) error {
	name, err := attachmentFileName(source)
	if err != nil {
		return err
	}

	in, err := os.Open(path) //nolint:gosec // G304: path is supplied by the test being reported
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", path, err)
	}
	defer func() {
		_ = in.Close()
	}()

	out, err := w.openExclusive(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		discard(out)
		return fmt.Errorf("copying attachment %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(out.Name())
		return fmt.Errorf("closing attachment %s: %w", name, err)
	}

	w.log.WithField("source", name).Debug("wrote attachment")

	return nil
}

// WriteEnvironmentInfo replaces environment.properties.
func (w *FileSystemWriter) WriteEnvironmentInfo(info *model.EnvironmentInfo) error {
	return w.replace(EnvironmentFileName, info.Properties())
}

// WriteCategories replaces categories.json.
func (w *FileSystemWriter) WriteCategories(categories []model.Category) error {
	if categories == nil {
		categories = []model.Category{}
	}
	payload, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding categories: %w", err)
	}
	return w.replace(CategoriesFileName, payload)
}

func (w *FileSystemWriter) openExclusive(name string) (*os.File, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) //nolint:gosec // G302: report files are world readable
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrAlreadyWritten)
		}
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// discard closes and removes a partially written file so the identifier can
// be written again.
func discard(f *os.File) {
	_ = f.Close()
	_ = os.Remove(f.Name())
}

func (w *FileSystemWriter) createExclusive(name string, payload []byte) error {
	f, err := w.openExclusive(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(payload); err != nil {
		discard(f)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return fmt.Errorf("closing %s: %w", name, err)
	}

	w.log.WithFields(logrus.Fields{
		"file":  name,
		"bytes": len(payload),
	}).Debug("wrote record")

	return nil
}

func (w *FileSystemWriter) replace(name string, payload []byte) error {
	tmp, err := os.CreateTemp(w.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", name, err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // G302: report files are world readable
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(w.dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

func attachmentFileName(source string) (string, error) {
	name := filepath.Base(source)
	if name != source || name == "." || name == ".." || name == "" {
		return "", fmt.Errorf("invalid attachment source %q", source) //nolint:err113 // Include source for debugging
	}
	return name, nil
}

var _ Writer = (*FileSystemWriter)(nil)

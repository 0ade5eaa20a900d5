package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/raphaelgruber/rikkaview/internal/models"
)

// WriteError reports a failed output write. No partial file is left at Path.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFile renders b with gen into path. Output goes to a temp file in
// the target directory that is renamed into place on success.
func WriteFile(path string, gen Generator, b *models.Backup) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err := gen.Generate(w, b); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Chmod(0644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

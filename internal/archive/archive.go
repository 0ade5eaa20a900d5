// Package archive opens backup zips and extracts the embedded database.
package archive

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

const (
	// DatabaseName is the base name of the SQLite file inside a backup.
	DatabaseName = "rikka_hub.db"

	// SettingsName is the base name of the settings document.
	SettingsName = "settings.json"

	// maxAssetSize bounds a single embedded image.
	maxAssetSize = 20 << 20
)

// Archive is an opened backup with its database extracted to a private
// temporary directory. Close removes the directory.
type Archive struct {
	path   string
	zr     *zip.ReadCloser
	dir    string
	dbPath string
	files  map[string]*zip.File // by base name, first entry wins
	logger *slog.Logger
}

// Open validates the zip at zipPath and extracts its database.
func Open(zipPath string, logger *slog.Logger) (*Archive, error) {
	if logger == nil {
		logger = slog.Default()
	}

	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &Error{Path: zipPath, Err: err}
		}
		return nil, &Error{Path: zipPath, Err: fmt.Errorf("%w: %v", ErrInvalidArchive, err)}
	}

	a := &Archive{
		path:   zipPath,
		zr:     zr,
		files:  make(map[string]*zip.File),
		logger: logger,
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		base := path.Base(f.Name)
		if _, ok := a.files[base]; !ok {
			a.files[base] = f
		}
	}

	if _, ok := a.files[DatabaseName]; !ok {
		_ = zr.Close()
		return nil, &Error{Path: zipPath, Err: ErrDatabaseMissing}
	}

	if err := a.extractDatabase(); err != nil {
		_ = a.Close()
		return nil, &Error{Path: zipPath, Err: err}
	}

	logger.Debug("archive opened", "path", zipPath, "entries", len(zr.File), "database", a.dbPath)
	return a, nil
}

// extractDatabase copies the database and any journal siblings into a
// fresh temp dir.
func (a *Archive) extractDatabase() error {
	dir, err := os.MkdirTemp("", "rikkaview-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	a.dir = dir

	for _, name := range []string{DatabaseName, DatabaseName + "-wal", DatabaseName + "-shm"} {
		f, ok := a.files[name]
		if !ok {
			continue
		}
		if err := extractFile(f, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("extract %s: %w", name, err)
		}
	}
	a.dbPath = filepath.Join(dir, DatabaseName)
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return out.Close()
}

// Path returns the archive's file path.
func (a *Archive) Path() string {
	return a.path
}

// DatabasePath returns the location of the extracted database.
func (a *Archive) DatabasePath() string {
	return a.dbPath
}

// settingsDoc is the subset of settings.json the viewer needs.
type settingsDoc struct {
	Assistants []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"assistants"`
}

// Assistants reads the assistant catalog from the settings document.
// A missing or malformed document yields an empty catalog.
func (a *Archive) Assistants() []models.Assistant {
	f, ok := a.files[SettingsName]
	if !ok {
		a.logger.Warn("backup has no settings document, assistant names unavailable", "path", a.path)
		return nil
	}

	data, err := readAll(f, -1)
	if err != nil {
		a.logger.Warn("failed to read settings document", "error", err)
		return nil
	}

	var doc settingsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		a.logger.Warn("malformed settings document, ignoring", "error", err)
		return nil
	}

	assistants := make([]models.Assistant, 0, len(doc.Assistants))
	for _, s := range doc.Assistants {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			name = models.DefaultAssistantName
		}
		assistants = append(assistants, models.Assistant{ID: s.ID, Name: name})
	}
	return assistants
}

// Assets loads the image entries referenced by refs as data: URIs, keyed
// by base name. References with no matching entry are skipped.
func (a *Archive) Assets(refs []string) map[string]string {
	out := make(map[string]string)
	for _, ref := range refs {
		base := models.AssetKey(ref)
		if base == "" || base == DatabaseName || base == SettingsName {
			continue
		}
		if _, done := out[base]; done {
			continue
		}
		f, ok := a.files[base]
		if !ok {
			continue
		}
		data, err := readAll(f, maxAssetSize)
		if err != nil {
			a.logger.Warn("skipping asset", "name", f.Name, "error", err)
			continue
		}
		out[base] = dataURI(base, data)
	}
	return out
}

func readAll(f *zip.File, limit int64) ([]byte, error) {
	if limit > 0 && f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("entry %s exceeds %d bytes", f.Name, limit)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func dataURI(name string, data []byte) string {
	ctype := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}
	if i := strings.IndexByte(ctype, ';'); i >= 0 {
		ctype = ctype[:i]
	}
	return "data:" + ctype + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Close releases the zip handle and removes extracted files.
func (a *Archive) Close() error {
	var errs []error
	if a.zr != nil {
		errs = append(errs, a.zr.Close())
		a.zr = nil
	}
	if a.dir != "" {
		errs = append(errs, os.RemoveAll(a.dir))
		a.dir = ""
	}
	return errors.Join(errs...)
}

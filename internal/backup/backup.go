// Package backup creates the durable files on first start and copies them
// into a timestamped backup set on shutdown.
package backup

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"

	"codeberg.org/mutker/ppgcollect/internal/errors"
	"codeberg.org/mutker/ppgcollect/internal/logger"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	// TimestampLayout is the suffix format of a backup set.
	TimestampLayout = "20060102_150405"
)

// File is a durable file managed by the Manager.
type File struct {
	Path string
	// Default is written by Bootstrap when Path does not exist.
	Default []byte
}

// Manager handles bootstrap and backup of the durable files.
type Manager struct {
	fs    afero.Fs
	dir   string
	files []File
	now   func() time.Time
}

// New creates a Manager writing backups into dir. A nil clock uses
// time.Now.
func New(fs afero.Fs, dir string, files []File, now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		fs:    fs,
		dir:   dir,
		files: files,
		now:   now,
	}
}

// Bootstrap writes the default content of every missing file. Existing
// files are left untouched.
func (m *Manager) Bootstrap() error {
	errFactory := errors.New()

	for _, f := range m.files {
		exists, err := afero.Exists(m.fs, f.Path)
		if err != nil {
			return errFactory.Wrap(ErrBootstrap, err)
		}
		if exists {
			logger.Info().Str("path", f.Path).Msg("File exists")
			continue
		}

		if dir := filepath.Dir(f.Path); dir != "." {
			if err := m.fs.MkdirAll(dir, defaultDirPerm); err != nil {
				return errFactory.Wrap(ErrBootstrap, err)
			}
		}
		if err := afero.WriteFile(m.fs, f.Path, f.Default, defaultFilePerm); err != nil {
			return errFactory.WithData(ErrBootstrap, struct {
				Path  string
				Error string
			}{
				Path:  f.Path,
				Error: err.Error(),
			})
		}

		logger.Info().Str("path", f.Path).Msg("File created")
	}

	return nil
}

// Backup copies every existing file into the backup directory and returns
// the paths written. Missing files are skipped. A failed copy does not stop
// the remaining ones; the first failure is returned.
func (m *Manager) Backup() ([]string, error) {
	errFactory := errors.New()

	if err := m.fs.MkdirAll(m.dir, defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrBackup, err)
	}

	stamp := m.now().Format(TimestampLayout)
	names := Names(m.files, stamp)
	written := make([]string, 0, len(m.files))
	var firstErr error

	for i, f := range m.files {
		exists, err := afero.Exists(m.fs, f.Path)
		if err == nil && !exists {
			logger.Warn().Str("path", f.Path).Msg("File not found, skipping backup")
			continue
		}

		dst := filepath.Join(m.dir, names[i])
		if err == nil {
			err = m.copy(f.Path, dst)
		}
		if err != nil {
			wrapped := errFactory.WithData(ErrBackup, struct {
				Path  string
				Error string
			}{
				Path:  f.Path,
				Error: err.Error(),
			})
			logger.ErrorWithCode(wrapped).Str("path", f.Path).Msg("Backup failed")
			if firstErr == nil {
				firstErr = wrapped
			}
			continue
		}

		logger.Info().Str("src", f.Path).Str("dst", dst).Msg("Backup created")
		written = append(written, dst)
	}

	return written, firstErr
}

func (m *Manager) copy(src, dst string) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := m.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

// Name returns the backup file name of path for the given timestamp,
// e.g. measurements.json -> measurements_bp_20250101_000000.json.
func Name(path, stamp string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext) + "_bp_" + stamp + ext
}

// Names returns one distinct backup file name per file. Files sharing a
// base name are told apart by their directory, e.g. hist/data.json ->
// hist_data_bp_20250101_000000.json.
func Names(files []File, stamp string) []string {
	bases := make(map[string]int, len(files))
	for _, f := range files {
		bases[filepath.Base(f.Path)]++
	}

	used := make(map[string]bool, len(files))
	names := make([]string, len(files))
	for i, f := range files {
		name := Name(f.Path, stamp)
		if bases[filepath.Base(f.Path)] > 1 {
			name = Name(flatten(f.Path), stamp)
		}
		for n := 2; used[name]; n++ {
			ext := filepath.Ext(f.Path)
			name = Name(strings.TrimSuffix(flatten(f.Path), ext)+"_"+strconv.Itoa(n)+ext, stamp)
		}
		used[name] = true
		names[i] = name
	}
	return names
}

// flatten turns a relative or absolute path into a single file name.
func flatten(path string) string {
	ext := filepath.Ext(path)
	p := filepath.ToSlash(filepath.Clean(strings.TrimSuffix(path, ext)))
	p = strings.TrimLeft(p, "/")
	for strings.HasPrefix(p, "../") {
		p = strings.TrimPrefix(p, "../")
	}
	return strings.ReplaceAll(p, "/", "_") + ext
}

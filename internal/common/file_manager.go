package common

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FileManager provides high-level file operations with standardized error handling and logging
type FileManager struct {
	logger zerolog.Logger
}

// NewFileManager creates a new FileManager instance
func NewFileManager(logger zerolog.Logger) *FileManager {
	return &FileManager{
		logger: logger.With().Str("component", "FileManager").Logger(),
	}
}

// EnsureDirectory creates a directory and its parents if they don't exist
func (fm *FileManager) EnsureDirectory(path string, perm fs.FileMode) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return NewValidationError("path", path, "exists but is not a directory")
		}
		return nil
	}
	if !os.IsNotExist(err) {
		return WrapError(err, "failed to check directory: "+path)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return WrapError(err, "failed to create directory: "+path)
	}

	fm.logger.Debug().Str("path", path).Msg("Created directory")
	return nil
}

// WriteFileAtomic writes data to a temporary file in the target directory and
// renames it over the destination, so readers never observe a partial write.
func (fm *FileManager) WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := fm.EnsureDirectory(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return WrapError(err, "failed to create temp file for: "+path)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return WrapError(err, "failed to write temp file for: "+path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return WrapError(err, "failed to sync temp file for: "+path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return WrapError(err, "failed to close temp file for: "+path)
	}

	if err := os.Chmod(tmpPath, perm); err != nil {
		fm.logger.Warn().Err(err).Str("path", tmpPath).Msg("Failed to set permissions on temp file")
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return WrapError(err, "failed to rename temp file to: "+path)
	}
	return nil
}

// MoveFile relocates a file, falling back to copy+remove when rename crosses devices.
func (fm *FileManager) MoveFile(src, dst string) error {
	if err := fm.EnsureDirectory(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	if err := os.Rename(src, dst); err == nil {
		fm.logger.Debug().Str("src", src).Str("dst", dst).Msg("Moved file")
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return WrapError(err, "failed to open source file: "+src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return WrapError(err, "failed to create destination file: "+dst)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return WrapErrorf(err, "failed to copy '%s' to '%s'", src, dst)
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return WrapError(err, "failed to close destination file: "+dst)
	}

	if err := os.Remove(src); err != nil {
		return WrapError(err, "failed to remove source file after copy: "+src)
	}

	fm.logger.Debug().Str("src", src).Str("dst", dst).Msg("Moved file (copy+remove)")
	return nil
}

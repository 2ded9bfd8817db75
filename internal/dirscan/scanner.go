package dirscan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/a11ysuite/aiscan/internal/common"
	"github.com/rs/zerolog"
)

// Subdirectories a completed input file is relocated into.
const (
	ProcessedDirName = "processed"
	FailedDirName    = "failed"
)

// ScanResult lists the eligible input files found in one directory pass.
type ScanResult struct {
	Files      []string
	TotalFound int
}

// Scanner discovers eligible CSV input files for unattended directory mode
// and relocates them after their run completes.
type Scanner struct {
	fm     *common.FileManager
	logger zerolog.Logger
}

// NewScanner creates a new Scanner instance
func NewScanner(logger zerolog.Logger) *Scanner {
	componentLogger := logger.With().Str("component", "DirectoryScanner").Logger()
	return &Scanner{
		fm:     common.NewFileManager(componentLogger),
		logger: componentLogger,
	}
}

// ScanDirectory lists eligible CSV files in lexicographic order, excluding
// hidden files, lock/checkpoint artifacts and the processed/ and failed/
// subdirectories. maxFiles > 0 caps the returned list for bounded
// per-invocation work; TotalFound always reports the uncapped count.
func (s *Scanner) ScanDirectory(dir string, maxFiles int) (*ScanResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, common.WrapError(err, "failed to read input directory: "+dir)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ".csv") {
			continue
		}
		// Output artifacts written next to an input are never new work.
		if strings.HasSuffix(name, "_enhanced.csv") || strings.HasSuffix(name, "_failed.csv") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	result := &ScanResult{TotalFound: len(files), Files: files}
	if maxFiles > 0 && len(files) > maxFiles {
		result.Files = files[:maxFiles]
	}

	s.logger.Info().
		Str("dir", dir).
		Int("total_found", result.TotalFound).
		Int("selected", len(result.Files)).
		Msg("Scanned input directory")

	return result, nil
}

// MoveToProcessed relocates a finished input file into processed/.
// Mixed results still count as processed: any successful item makes the
// file's output worth keeping distinct from total failure.
func (s *Scanner) MoveToProcessed(path string) error {
	return s.moveTo(path, ProcessedDirName)
}

// MoveToFailed relocates a zero-success input file into failed/.
func (s *Scanner) MoveToFailed(path string) error {
	return s.moveTo(path, FailedDirName)
}

func (s *Scanner) moveTo(path, subdir string) error {
	dst := filepath.Join(filepath.Dir(path), subdir, filepath.Base(path))
	if err := s.fm.MoveFile(path, dst); err != nil {
		return err
	}
	s.logger.Info().Str("file", path).Str("dst", dst).Msg("Relocated input file")
	return nil
}

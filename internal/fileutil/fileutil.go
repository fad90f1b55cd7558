// Package fileutil provides tmp+mv semantics for writing output files.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bsm/bigtab/internal/logging"
)

// WriteTmpThenMove writes to a temporary file next to outPath, then
// atomically moves it to outPath. The writeFunc receives the open temporary
// file and should write the complete output. On error the temporary file is
// removed and outPath is left untouched.
func WriteTmpThenMove(outPath string, writeFunc func(f *os.File) error) error {
	// Ensure output directory exists
	outDir := filepath.Dir(outPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	f, err := os.CreateTemp(outDir, filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	if err := writeFunc(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}

	// Atomic move
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp to final: %w", err)
	}

	logging.L().Debug().Str("path", outPath).Msg("moved temp file into place")
	return nil
}

// Package payload verifies and packages the pre-built application payload
// before it is handed to the installer.
package payload

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kodaira/appsetup/internal/manifest"
)

// FileInfo describes one verified payload file
type FileInfo struct {
	Source string
	Size   int64
	SHA256 string
}

// Report summarizes a payload verification run
type Report struct {
	Files   []FileInfo
	Missing []string
	// CreatedDirs lists manifest directories that were absent from the
	// payload and created during verification
	CreatedDirs []string
}

// OK reports whether every manifest source was found
func (r *Report) OK() bool {
	return len(r.Missing) == 0
}

// Verify checks that every manifest source file exists under the payload
// directory and computes its size and digest. The report always covers all
// entries; an error is returned when any source is missing. Manifest
// directories absent from the payload are not errors: they are created in
// place with a warning, since they ship empty.
func Verify(ctx context.Context, payloadDir string, m *manifest.Manifest, logger *slog.Logger) (*Report, error) {
	report := &Report{}

	for _, entry := range m.Files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		src := filepath.Join(payloadDir, entry.Source)
		info, err := os.Stat(src)
		if err != nil {
			report.Missing = append(report.Missing, entry.Source)
			continue
		}

		hash, err := fileHash(src)
		if err != nil {
			return report, fmt.Errorf("failed to compute hash for %s: %w", entry.Source, err)
		}

		report.Files = append(report.Files, FileInfo{
			Source: entry.Source,
			Size:   info.Size(),
			SHA256: hash,
		})
	}

	for _, d := range m.Dirs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		dir := filepath.Join(payloadDir, d.Path)
		if _, err := os.Stat(dir); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return report, fmt.Errorf("failed to stat payload directory %s: %w", d.Path, err)
		}

		mode, err := d.FileMode()
		if err != nil {
			return report, fmt.Errorf("invalid mode for payload directory %s: %w", d.Path, err)
		}
		if err := os.MkdirAll(dir, mode); err != nil {
			return report, fmt.Errorf("failed to create payload directory %s: %w", d.Path, err)
		}

		logger.Warn("payload directory was missing, created empty", "dir", d.Path)
		report.CreatedDirs = append(report.CreatedDirs, d.Path)
	}

	if !report.OK() {
		return report, fmt.Errorf("payload is missing %d file(s): %v", len(report.Missing), report.Missing)
	}
	return report, nil
}

// fileHash computes the SHA256 hash of a file
func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

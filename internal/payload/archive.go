package payload

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Archive writes a portable zip of the payload directory to outPath and
// returns the number of archived files. Entry names are forward-slash paths
// relative to the payload directory, walked in sorted order so the archive
// is reproducible for a given tree.
func Archive(ctx context.Context, payloadDir, outPath string) (int, error) {
	absOut, err := filepath.Abs(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve output path: %w", err)
	}

	var files []string
	err = filepath.WalkDir(payloadDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		// The archive may live inside the payload dir; never archive itself.
		if abs == absOut {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to walk payload directory: %w", err)
	}
	sort.Strings(files)

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		_ = out.Close()
	}()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return 0, err
		}
		if err := addToArchive(zw, payloadDir, path); err != nil {
			_ = zw.Close()
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close archive: %w", err)
	}
	return len(files), nil
}

func addToArchive(zw *zip.Writer, payloadDir, path string) error {
	rel, err := filepath.Rel(payloadDir, path)
	if err != nil {
		return fmt.Errorf("failed to compute relative path for %s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	w, err := zw.Create(filepath.ToSlash(rel))
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", rel, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", rel, err)
	}
	return nil
}

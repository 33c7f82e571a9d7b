package payload

import (
	"archive/zip"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kodaira/appsetup/internal/manifest"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writePayload(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestVerify(t *testing.T) {
	dir := writePayload(t, map[string]string{
		"ProjectSuite.exe": "binary",
		"lib/core.dll":     "library",
	})

	m := &manifest.Manifest{
		Files: []manifest.FileEntry{
			{Source: "ProjectSuite.exe", Dest: "ProjectSuite.exe"},
			{Source: "lib/core.dll", Dest: "lib/core.dll"},
		},
	}

	report, err := Verify(context.Background(), dir, m, testLogger())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !report.OK() {
		t.Fatalf("expected OK report, missing: %v", report.Missing)
	}
	if len(report.Files) != 2 {
		t.Fatalf("expected 2 verified files, got %d", len(report.Files))
	}
	if report.Files[0].Size != int64(len("binary")) {
		t.Errorf("unexpected size: %d", report.Files[0].Size)
	}
	if len(report.Files[0].SHA256) != 64 {
		t.Errorf("unexpected digest length: %d", len(report.Files[0].SHA256))
	}
}

func TestVerify_MissingSource(t *testing.T) {
	dir := writePayload(t, map[string]string{
		"ProjectSuite.exe": "binary",
	})

	m := &manifest.Manifest{
		Files: []manifest.FileEntry{
			{Source: "ProjectSuite.exe", Dest: "ProjectSuite.exe"},
			{Source: "lib/core.dll", Dest: "lib/core.dll"},
		},
	}

	report, err := Verify(context.Background(), dir, m, testLogger())
	if err == nil {
		t.Fatal("expected error for missing source, got nil")
	}
	if report.OK() {
		t.Error("report should not be OK")
	}
	if len(report.Missing) != 1 || report.Missing[0] != "lib/core.dll" {
		t.Errorf("unexpected missing list: %v", report.Missing)
	}
	// The present file is still reported
	if len(report.Files) != 1 {
		t.Errorf("expected 1 verified file, got %d", len(report.Files))
	}
}

func TestVerify_CreatesMissingDirs(t *testing.T) {
	dir := writePayload(t, map[string]string{
		"ProjectSuite.exe": "binary",
	})
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := &manifest.Manifest{
		Files: []manifest.FileEntry{
			{Source: "ProjectSuite.exe", Dest: "ProjectSuite.exe"},
		},
		Dirs: []manifest.DirEntry{
			{Path: "data", Mode: "0755"},
			{Path: "logs", Mode: "0755"},
		},
	}

	report, err := Verify(context.Background(), dir, m, testLogger())
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	// The absent dir is created in place, the present one left alone
	info, statErr := os.Stat(filepath.Join(dir, "data"))
	if statErr != nil || !info.IsDir() {
		t.Errorf("missing payload directory not created: %v", statErr)
	}
	if len(report.CreatedDirs) != 1 || report.CreatedDirs[0] != "data" {
		t.Errorf("unexpected created dirs: %v", report.CreatedDirs)
	}

	// A second run finds everything in place
	report, err = Verify(context.Background(), dir, m, testLogger())
	if err != nil {
		t.Fatalf("repeat Verify failed: %v", err)
	}
	if len(report.CreatedDirs) != 0 {
		t.Errorf("repeat run should create nothing, got %v", report.CreatedDirs)
	}
}

func TestArchive(t *testing.T) {
	dir := writePayload(t, map[string]string{
		"ProjectSuite.exe": "binary",
		"lib/core.dll":     "library",
		"doc/readme.txt":   "notes",
	})

	outPath := filepath.Join(t.TempDir(), "payload.zip")
	count, err := Archive(context.Background(), dir, outPath)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 archived files, got %d", count)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"ProjectSuite.exe", "lib/core.dll", "doc/readme.txt"} {
		if !names[want] {
			t.Errorf("archive missing entry %s, has %v", want, names)
		}
	}
}

func TestArchive_ExcludesItself(t *testing.T) {
	dir := writePayload(t, map[string]string{
		"app.exe": "binary",
	})

	// Archive written inside the payload directory
	outPath := filepath.Join(dir, "out.zip")
	count, err := Archive(context.Background(), dir, outPath)
	if err != nil {
		t.Fatalf("Archive failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 archived file, got %d", count)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer func() {
		_ = zr.Close()
	}()

	for _, f := range zr.File {
		if f.Name == "out.zip" {
			t.Error("archive contains itself")
		}
	}
}

package uninstall

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/kodaira/appsetup/internal/config"
	"github.com/kodaira/appsetup/internal/confirm"
	"github.com/kodaira/appsetup/internal/i18n"
	"github.com/kodaira/appsetup/internal/manifest"
	"github.com/kodaira/appsetup/internal/shortcut"
	"github.com/kodaira/appsetup/internal/winreg"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockProvisioner records shortcut removals
type mockProvisioner struct {
	removed   []shortcut.Spec
	removeErr error
}

func (m *mockProvisioner) Create(_ context.Context, _ shortcut.Spec) error { return nil }

func (m *mockProvisioner) Remove(_ context.Context, spec shortcut.Spec) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, spec)
	return nil
}

// mockRegistrar records unregistrations
type mockRegistrar struct {
	unregistered []string
}

func (m *mockRegistrar) Register(_ context.Context, _ winreg.Entry) error { return nil }

func (m *mockRegistrar) Unregister(_ context.Context, productName string) error {
	m.unregistered = append(m.unregistered, productName)
	return nil
}

// countingConfirmer wraps a fixed answer and counts invocations
type countingConfirmer struct {
	answer bool
	err    error
	calls  int
}

func (c *countingConfirmer) Confirm(_ context.Context, _ string) (bool, error) {
	c.calls++
	return c.answer, c.err
}

func testConfig() *config.Config {
	return &config.Config{
		Product: config.ProductConfig{
			Name:      "ProjectSuite",
			Version:   "1.1.0",
			Publisher: "Kodaira Planning",
			Exe:       "ProjectSuite.exe",
		},
		Locale: "en",
	}
}

func testMessages() i18n.Messages {
	return i18n.Messages{PurgePrompt: "Remove all user data created by this application?"}
}

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Files: []manifest.FileEntry{
			{Source: "ProjectSuite.exe", Dest: "ProjectSuite.exe"},
			{Source: "lib/core.dll", Dest: "lib/core.dll"},
		},
		Dirs: []manifest.DirEntry{
			{Path: "lib", Mode: "0755"},
			{Path: "data", Mode: "0755"},
			{Path: "logs", Mode: "0755"},
		},
		Shortcuts: []manifest.ShortcutEntry{
			{Name: "ProjectSuite", Target: "ProjectSuite.exe", Place: manifest.PlaceStartMenu},
		},
	}
}

// installTree lays out the artifacts an install run would have produced,
// with user data in the data and logs directories.
func installTree(t *testing.T) (installRoot string, dataDirs []string) {
	t.Helper()
	installRoot = t.TempDir()

	for _, dir := range []string{"lib", "data", "logs"} {
		if err := os.MkdirAll(filepath.Join(installRoot, dir), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	for _, f := range []string{"ProjectSuite.exe", "lib/core.dll", "data/projects.db", "logs/app.log"} {
		if err := os.WriteFile(filepath.Join(installRoot, f), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	dataDirs = []string{
		filepath.Join(installRoot, "data"),
		filepath.Join(installRoot, "logs"),
	}
	return installRoot, dataDirs
}

func newTestDriver(dryRun bool) (*Driver, *mockProvisioner, *mockRegistrar) {
	shortcuts := &mockProvisioner{}
	registrar := &mockRegistrar{}
	placement := shortcut.Placement{Desktop: "/tmp/desktop", StartMenu: "/tmp/startmenu"}
	d := NewDriver(testConfig(), Collaborators{
		Shortcuts: shortcuts,
		Registrar: registrar,
	}, placement, testMessages(), testLogger(), dryRun)
	return d, shortcuts, registrar
}

func TestUninstall_DeclinePreservesData(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, shortcuts, registrar := newTestDriver(false)

	c := &countingConfirmer{answer: false}
	res, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, c)
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}

	if c.calls != 1 {
		t.Errorf("confirmer called %d times, want exactly 1", c.calls)
	}
	if res.Purged {
		t.Error("decline must not purge")
	}
	if res.Phase != PhaseDone {
		t.Errorf("expected terminal phase done, got %s", res.Phase)
	}

	// Program artifacts are gone regardless of the decision
	for _, f := range []string{"ProjectSuite.exe", "lib/core.dll"} {
		if _, err := os.Stat(filepath.Join(installRoot, f)); !os.IsNotExist(err) {
			t.Errorf("program file %s survived uninstall", f)
		}
	}
	if len(shortcuts.removed) != 1 {
		t.Errorf("expected 1 shortcut removal, got %d", len(shortcuts.removed))
	}
	if len(registrar.unregistered) != 1 || registrar.unregistered[0] != "ProjectSuite" {
		t.Errorf("unexpected unregistrations: %v", registrar.unregistered)
	}

	// User data stays in place
	for _, f := range []string{"data/projects.db", "logs/app.log"} {
		if _, err := os.Stat(filepath.Join(installRoot, f)); err != nil {
			t.Errorf("user data %s was removed on decline: %v", f, err)
		}
	}
}

func TestUninstall_AcceptPurgesData(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, _, _ := newTestDriver(false)

	c := &countingConfirmer{answer: true}
	res, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, c)
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}

	if c.calls != 1 {
		t.Errorf("confirmer called %d times, want exactly 1", c.calls)
	}
	if !res.Purged {
		t.Error("accept must purge")
	}

	for _, dir := range dataDirs {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("data directory %s survived purge", dir)
		}
	}
	// With everything gone the install root itself is dropped
	if _, err := os.Stat(installRoot); !os.IsNotExist(err) {
		t.Error("empty install root survived uninstall")
	}

	for _, r := range res.DataDirs {
		if r.Outcome != OutcomeSucceeded {
			t.Errorf("data dir %s: expected succeeded, got %s", r.Path, r.Outcome)
		}
	}
}

func TestUninstall_ConfirmsEvenWithoutDataDirs(t *testing.T) {
	installRoot, _ := installTree(t)
	d, _, _ := newTestDriver(false)

	c := &countingConfirmer{answer: true}
	_, err := d.Uninstall(context.Background(), testManifest(), installRoot, nil, c)
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if c.calls != 1 {
		t.Errorf("confirmer called %d times, want exactly 1", c.calls)
	}
}

func TestUninstall_Idempotent(t *testing.T) {
	installRoot, dataDirs := installTree(t)

	d1, _, _ := newTestDriver(false)
	if _, err := d1.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: true}); err != nil {
		t.Fatalf("first uninstall failed: %v", err)
	}

	// A fresh driver over the already-clean tree must also succeed
	d2, _, _ := newTestDriver(false)
	res, err := d2.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: true})
	if err != nil {
		t.Fatalf("second uninstall failed: %v", err)
	}

	for _, list := range [][]ArtifactResult{res.Files, res.Dirs, res.DataDirs} {
		for _, r := range list {
			if r.Outcome == OutcomeFailed {
				t.Errorf("artifact %s failed on repeat uninstall: %s", r.Path, r.Err)
			}
		}
	}
}

func TestUninstall_UsedDriverRejectsSecondRun(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, _, _ := newTestDriver(false)

	if _, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: false}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	if _, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: false}); err == nil {
		t.Fatal("expected error when reusing a finished driver")
	}
}

func TestUninstall_ConfirmErrorPreservesData(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, _, _ := newTestDriver(false)

	c := &countingConfirmer{answer: true, err: errors.New("terminal gone")}
	res, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, c)
	if err != nil {
		t.Fatalf("confirmation failure must not abort the uninstall: %v", err)
	}

	if res.Purged {
		t.Error("data must be preserved when no explicit answer was obtained")
	}
	if res.ConfirmErr == "" {
		t.Error("ConfirmErr should carry the failure")
	}
	for _, dir := range dataDirs {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("data directory %s removed despite confirmation failure", dir)
		}
	}
}

func TestUninstall_CancelledPromptDeclines(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, _, _ := newTestDriver(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A prompt that would block forever; the cancelled context resolves it
	blocked, _ := io.Pipe()
	confirmer := &confirm.Stdio{In: blocked, Out: io.Discard}

	res, err := d.Uninstall(ctx, testManifest(), installRoot, dataDirs, confirmer)
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if res.Purged {
		t.Error("cancellation at the prompt must preserve data")
	}
	for _, dir := range dataDirs {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("data directory %s removed after cancelled prompt", dir)
		}
	}
}

func TestUninstall_NonEmptyDirLeftForPurgeDecision(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, _, _ := newTestDriver(false)

	res, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: false})
	if err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}

	outcomes := map[string]Outcome{}
	for _, r := range res.Dirs {
		outcomes[r.Path] = r.Outcome
	}
	// lib is emptied by file removal; data and logs still hold user files
	if outcomes["lib"] != OutcomeSucceeded {
		t.Errorf("empty lib dir: expected succeeded, got %s", outcomes["lib"])
	}
	if outcomes["data"] != OutcomeSkipped {
		t.Errorf("non-empty data dir: expected skipped, got %s", outcomes["data"])
	}
	if outcomes["logs"] != OutcomeSkipped {
		t.Errorf("non-empty logs dir: expected skipped, got %s", outcomes["logs"])
	}
}

func TestUninstall_DryRunTouchesNothing(t *testing.T) {
	installRoot, dataDirs := installTree(t)
	d, shortcuts, registrar := newTestDriver(true)

	res, err := d.Uninstall(context.Background(), testManifest(), installRoot, dataDirs, &countingConfirmer{answer: true})
	if err != nil {
		t.Fatalf("dry-run failed: %v", err)
	}

	for _, f := range []string{"ProjectSuite.exe", "lib/core.dll", "data/projects.db", "logs/app.log"} {
		if _, err := os.Stat(filepath.Join(installRoot, f)); err != nil {
			t.Errorf("dry-run removed %s: %v", f, err)
		}
	}
	if len(shortcuts.removed) != 0 {
		t.Error("dry-run removed shortcuts")
	}
	if len(registrar.unregistered) != 0 {
		t.Error("dry-run unregistered the product")
	}
	if res.Phase != PhaseDone {
		t.Errorf("dry-run still walks the full sequence, got phase %s", res.Phase)
	}
	for _, r := range res.DataDirs {
		if r.Outcome != OutcomeSkipped {
			t.Errorf("dry-run data dir %s: expected skipped, got %s", r.Path, r.Outcome)
		}
	}
}

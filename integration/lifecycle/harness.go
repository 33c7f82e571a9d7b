//go:build integration

package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Harness builds the real binary once and runs it against a scratch tree
type Harness struct {
	t       *testing.T
	binPath string

	// Scratch layout for one lifecycle run
	Root        string
	PayloadDir  string
	InstallRoot string
	Desktop     string
	StartMenu   string
	ConfigPath  string
}

// NewHarness compiles the binary and lays out a scratch environment
func NewHarness(t *testing.T) *Harness {
	t.Helper()

	projectRoot, err := findProjectRoot()
	if err != nil {
		t.Fatalf("get project root: %v", err)
	}

	// HOME and XDG_DATA_HOME are pointed into the scratch tree so shortcut
	// placement stays inside it.
	root := t.TempDir()
	h := &Harness{
		t:           t,
		binPath:     filepath.Join(root, "appsetup"),
		Root:        root,
		PayloadDir:  filepath.Join(root, "payload"),
		InstallRoot: filepath.Join(root, "install"),
		Desktop:     filepath.Join(root, "Desktop"),
		StartMenu:   filepath.Join(root, "xdg-data", "applications"),
		ConfigPath:  filepath.Join(root, "appsetup.yaml"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "-o", h.binPath, "./cmd/appsetup")
	cmd.Dir = projectRoot
	cmd.Stdout = &testWriter{t: t, prefix: "[build] "}
	cmd.Stderr = &testWriter{t: t, prefix: "[build] "}
	if err := cmd.Run(); err != nil {
		t.Fatalf("go build: %v", err)
	}

	return h
}

// WritePayload populates the payload directory with the given files
func (h *Harness) WritePayload(files map[string]string) {
	h.t.Helper()
	for name, content := range files {
		path := filepath.Join(h.PayloadDir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			h.t.Fatalf("mkdir payload: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
			h.t.Fatalf("write payload file: %v", err)
		}
	}
}

// WriteManifest writes the manifest into the payload directory
func (h *Harness) WriteManifest(content string) string {
	h.t.Helper()
	path := filepath.Join(h.Root, "manifest.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		h.t.Fatalf("write manifest: %v", err)
	}
	return path
}

// WriteConfig writes the config file pointing at the scratch layout
func (h *Harness) WriteConfig(manifestPath string) {
	h.t.Helper()
	content := fmt.Sprintf(`product:
  name: "LifecycleApp"
  version: "1.0.0"
  publisher: "Kodaira Planning"
  exe: "app"
paths:
  install_root: %q
payload:
  dir: %q
  manifest: %q
install:
  launch_after: false
`, h.InstallRoot, h.PayloadDir, manifestPath)

	if err := os.WriteFile(h.ConfigPath, []byte(content), 0o644); err != nil {
		h.t.Fatalf("write config: %v", err)
	}
}

// Run invokes the binary with the scratch config and optional piped stdin
func (h *Harness) Run(ctx context.Context, stdin string, args ...string) (string, string, int, error) {
	h.t.Helper()

	full := append([]string{"--config", h.ConfigPath}, args...)
	cmd := exec.CommandContext(ctx, h.binPath, full...)
	cmd.Env = append(os.Environ(),
		"HOME="+h.Root,
		"XDG_DATA_HOME="+filepath.Join(h.Root, "xdg-data"),
		"XDG_STATE_HOME="+filepath.Join(h.Root, "xdg-state"),
	)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			err = nil
		}
	}
	return stdout.String(), stderr.String(), exitCode, err
}

// MustRun invokes the binary and fails the test on a non-zero exit
func (h *Harness) MustRun(ctx context.Context, stdin string, args ...string) (string, string) {
	h.t.Helper()
	stdout, stderr, exitCode, err := h.Run(ctx, stdin, args...)
	if err != nil {
		h.t.Fatalf("run failed: %v", err)
	}
	if exitCode != 0 {
		h.t.Fatalf("command failed with exit code %d\nstdout: %s\nstderr: %s\nargs: %v",
			exitCode, stdout, stderr, args)
	}
	return stdout, stderr
}

// FileExists reports whether a path exists in the scratch tree
func (h *Harness) FileExists(path string) bool {
	h.t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// testWriter wraps test logging for command output
type testWriter struct {
	t      *testing.T
	prefix string
}

func (w *testWriter) Write(p []byte) (n int, err error) {
	lines := strings.Split(string(p), "\n")
	for _, line := range lines {
		if line != "" {
			w.t.Log(w.prefix + line)
		}
	}
	return len(p), nil
}

// findProjectRoot walks up the directory tree from the current file to find go.mod
func findProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to get caller information")
	}

	dir := filepath.Dir(filename)
	for {
		goModPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(goModPath); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found in any parent directory")
		}
		dir = parent
	}
}

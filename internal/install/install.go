package install

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kodaira/appsetup/internal/config"
	"github.com/kodaira/appsetup/internal/launcher"
	"github.com/kodaira/appsetup/internal/manifest"
	"github.com/kodaira/appsetup/internal/shortcut"
	"github.com/kodaira/appsetup/internal/winreg"
)

// Collaborators are the external effects the engine drives
type Collaborators struct {
	Shortcuts shortcut.Provisioner
	Launcher  launcher.Launcher
	Registrar winreg.Registrar
}

// Engine orchestrates the install sequence
type Engine struct {
	cfg       *config.Config
	c         Collaborators
	placement shortcut.Placement
	logger    *slog.Logger
	dryRun    bool
}

// NewEngine creates a new install engine
func NewEngine(cfg *config.Config, c Collaborators, placement shortcut.Placement, logger *slog.Logger, dryRun bool) *Engine {
	return &Engine{
		cfg:       cfg,
		c:         c,
		placement: placement,
		logger:    logger,
		dryRun:    dryRun,
	}
}

// Install runs the manifest against installRoot. Directory creation is
// fatal on failure; file copies and shortcut registrations are best effort
// and accumulate into the result. The returned error is non-nil only for
// fatal aborts.
func (e *Engine) Install(ctx context.Context, m *manifest.Manifest, installRoot string, tasks []string) (*Result, error) {
	e.logger.Info("starting install",
		"product", e.cfg.Product.Name,
		"version", e.cfg.Product.Version,
		"install_root", installRoot,
		"tasks", tasks,
		"dry_run", e.dryRun)

	res := &Result{}

	if e.dryRun {
		e.logPlan(m, installRoot, tasks)
		e.logger.Info("dry-run complete, no changes applied")
		return res, nil
	}

	// Directories first: later steps depend on them, so a failure here
	// aborts the whole run.
	for _, d := range m.Dirs {
		dest := filepath.Join(installRoot, d.Path)
		mode, err := d.FileMode()
		if err == nil {
			err = os.MkdirAll(dest, mode)
		}
		if err != nil {
			res.Dirs = append(res.Dirs, EntryResult{Path: d.Path, Outcome: OutcomeFailed, Err: err.Error()})
			res.Fatal = fmt.Errorf("failed to create directory %s: %w", dest, err)
			e.logger.Error("directory creation failed, aborting install", "dir", dest, "error", err)
			return res, res.Fatal
		}
		res.Dirs = append(res.Dirs, EntryResult{Path: d.Path, Outcome: OutcomeSucceeded})
		e.logger.Debug("created directory", "dir", dest)
	}

	// Files are best effort per entry.
	for _, f := range m.Files {
		if err := ctx.Err(); err != nil {
			res.Fatal = err
			return res, err
		}

		src := filepath.Join(e.cfg.Payload.Dir, f.Source)
		dest := filepath.Join(installRoot, f.Dest)

		if f.Overwrite == manifest.OverwriteSkipIfNewer && destNewer(src, dest) {
			res.Files = append(res.Files, EntryResult{Path: f.Dest, Outcome: OutcomeSkipped})
			e.logger.Info("keeping newer destination file", "dest", dest)
			continue
		}

		if err := copyFile(src, dest); err != nil {
			res.Files = append(res.Files, EntryResult{Path: f.Dest, Outcome: OutcomeFailed, Err: err.Error()})
			e.logger.Warn("file copy failed", "source", src, "dest", dest, "error", err)
			continue
		}
		res.Files = append(res.Files, EntryResult{Path: f.Dest, Outcome: OutcomeSucceeded})
		e.logger.Debug("installed file", "dest", dest)
	}

	// Shortcuts whose task gate does not match are skipped silently.
	selected := taskSet(tasks)
	for _, s := range m.Shortcuts {
		if s.Task != "" && !selected[s.Task] {
			res.Shortcuts = append(res.Shortcuts, EntryResult{Path: s.Name, Outcome: OutcomeSkipped})
			continue
		}

		spec := e.shortcutSpec(s, installRoot)
		if err := e.c.Shortcuts.Create(ctx, spec); err != nil {
			res.Shortcuts = append(res.Shortcuts, EntryResult{Path: s.Name, Outcome: OutcomeFailed, Err: err.Error()})
			e.logger.Warn("shortcut registration failed", "name", s.Name, "error", err)
			continue
		}
		res.Shortcuts = append(res.Shortcuts, EntryResult{Path: s.Name, Outcome: OutcomeSucceeded})
		e.logger.Info("registered shortcut", "name", s.Name, "place", string(s.Place))
	}

	if e.cfg.RegisterUninstall() {
		entry := winreg.Entry{
			ProductName:     e.cfg.Product.Name,
			DisplayVersion:  e.cfg.Product.Version,
			Publisher:       e.cfg.Product.Publisher,
			InstallLocation: installRoot,
			UninstallString: fmt.Sprintf("appsetup uninstall --install-root %q", installRoot),
			DisplayIcon:     e.cfg.ExePath(installRoot),
		}
		if err := e.c.Registrar.Register(ctx, entry); err != nil {
			e.logger.Warn("uninstall entry registration failed", "error", err)
		}
	}

	if e.cfg.LaunchAfter() {
		e.launchAfterInstall(ctx, m, installRoot, res)
	}

	succeeded, skipped, failed := res.Summary()
	e.logger.Info("install finished",
		"succeeded", succeeded,
		"skipped", skipped,
		"failed", failed)
	return res, nil
}

// launchAfterInstall fires the post-install command without waiting for it.
// Launch failures are reported in the result but never roll back anything.
func (e *Engine) launchAfterInstall(ctx context.Context, m *manifest.Manifest, installRoot string, res *Result) {
	command := e.cfg.ExePath(installRoot)
	var args []string
	if m.Run != nil {
		command = filepath.Join(installRoot, m.Run.Command)
		args = m.Run.Args
	}

	e.logger.Info("launching application", "command", command)
	if err := e.c.Launcher.Start(ctx, installRoot, command, args); err != nil {
		res.LaunchErr = err.Error()
		e.logger.Warn("post-install launch failed", "command", command, "error", err)
		return
	}
	res.Launched = true
}

func (e *Engine) shortcutSpec(s manifest.ShortcutEntry, installRoot string) shortcut.Spec {
	return shortcut.Spec{
		Name:       s.Name,
		Dir:        e.placement.Dir(s.Place),
		Target:     filepath.Join(installRoot, s.Target),
		Args:       s.Args,
		WorkingDir: installRoot,
	}
}

// logPlan logs every step a real run would take
func (e *Engine) logPlan(m *manifest.Manifest, installRoot string, tasks []string) {
	for _, d := range m.Dirs {
		e.logger.Info("[dry-run] would create directory", "dir", filepath.Join(installRoot, d.Path), "mode", d.Mode)
	}
	for _, f := range m.Files {
		e.logger.Info("[dry-run] would install file",
			"dest", filepath.Join(installRoot, f.Dest),
			"overwrite", string(f.Overwrite))
	}
	selected := taskSet(tasks)
	for _, s := range m.Shortcuts {
		if s.Task != "" && !selected[s.Task] {
			e.logger.Info("[dry-run] would skip shortcut (task not selected)", "name", s.Name, "task", s.Task)
			continue
		}
		e.logger.Info("[dry-run] would register shortcut", "name", s.Name, "dir", e.placement.Dir(s.Place))
	}
	if e.cfg.LaunchAfter() {
		e.logger.Info("[dry-run] would launch application", "exe", e.cfg.ExePath(installRoot))
	}
}

func taskSet(tasks []string) map[string]bool {
	set := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		set[t] = true
	}
	return set
}

// destNewer reports whether dest exists and is strictly newer than src.
// With no version resource to compare, modification time stands in for the
// version check.
func destNewer(src, dest string) bool {
	destInfo, err := os.Stat(dest)
	if err != nil {
		return false
	}
	srcInfo, err := os.Stat(src)
	if err != nil {
		return false
	}
	return destInfo.ModTime().After(srcInfo.ModTime())
}

// copyFile copies a file from src to dst with atomic write
func copyFile(src, dst string) error {
	// Ensure parent directory exists
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		_ = srcFile.Close()
	}()

	// Create temp file in destination directory
	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".appsetup-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := io.Copy(tmpFile, srcFile); err != nil {
		_ = tmpFile.Close()
		return err
	}

	srcInfo, err := srcFile.Stat()
	if err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(srcInfo.Mode()); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpPath, dst)
}

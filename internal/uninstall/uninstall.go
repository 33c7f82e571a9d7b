package uninstall

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kodaira/appsetup/internal/config"
	"github.com/kodaira/appsetup/internal/confirm"
	"github.com/kodaira/appsetup/internal/i18n"
	"github.com/kodaira/appsetup/internal/manifest"
	"github.com/kodaira/appsetup/internal/shortcut"
	"github.com/kodaira/appsetup/internal/winreg"
)

// Outcome is the per-artifact result of one removal step
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// ArtifactResult records the outcome of removing one artifact
type ArtifactResult struct {
	Path    string
	Outcome Outcome
	Err     string
}

// Result summarizes an uninstall run
type Result struct {
	Shortcuts []ArtifactResult
	Files     []ArtifactResult
	Dirs      []ArtifactResult
	DataDirs  []ArtifactResult

	// Purged reports whether the operator confirmed the data purge
	Purged bool
	// ConfirmErr is set when the confirmation collaborator failed; the
	// driver preserves data in that case.
	ConfirmErr string
	// Phase is the terminal phase, always PhaseDone on a completed run
	Phase Phase
}

// Collaborators are the external effects the driver drives
type Collaborators struct {
	Shortcuts shortcut.Provisioner
	Registrar winreg.Registrar
}

// Driver orchestrates the uninstall sequence. A driver instance runs the
// sequence once; it is not re-entrant mid-sequence.
type Driver struct {
	cfg       *config.Config
	c         Collaborators
	placement shortcut.Placement
	msgs      i18n.Messages
	logger    *slog.Logger
	dryRun    bool
	phase     Phase
}

// NewDriver creates a new uninstall driver in the Start phase
func NewDriver(cfg *config.Config, c Collaborators, placement shortcut.Placement, msgs i18n.Messages, logger *slog.Logger, dryRun bool) *Driver {
	return &Driver{
		cfg:       cfg,
		c:         c,
		placement: placement,
		msgs:      msgs,
		logger:    logger,
		dryRun:    dryRun,
		phase:     PhaseStart,
	}
}

// Phase returns the driver's current phase
func (d *Driver) Phase() Phase {
	return d.phase
}

// Uninstall removes every artifact the installer created and then asks the
// confirmation collaborator, exactly once, whether to also purge the user
// data directories. Program artifacts are removed regardless of that
// decision. Missing targets are treated as success, so the whole sequence
// is idempotent. Only a fresh driver can run; re-invoking a used driver
// returns an error.
func (d *Driver) Uninstall(ctx context.Context, m *manifest.Manifest, installRoot string, dataDirs []string, confirmer confirm.Confirmer) (*Result, error) {
	if d.phase != PhaseStart {
		return nil, fmt.Errorf("uninstall driver already ran (phase %s)", d.phase)
	}

	d.logger.Info("starting uninstall",
		"product", d.cfg.Product.Name,
		"install_root", installRoot,
		"dry_run", d.dryRun)

	res := &Result{}

	if err := d.transition(PhaseRemovingArtifacts); err != nil {
		return nil, err
	}
	d.removeArtifacts(ctx, m, installRoot, res)

	if err := d.transition(PhaseAwaitingDecision); err != nil {
		return nil, err
	}

	// The decision is captured exactly once per run and never cached.
	purge, err := confirmer.Confirm(ctx, d.msgs.PurgePrompt)
	if err != nil {
		// No explicit answer could be obtained; data stays.
		res.ConfirmErr = err.Error()
		purge = false
		d.logger.Warn("confirmation failed, preserving user data", "error", err)
	}

	if purge {
		if err := d.transition(PhasePurgingData); err != nil {
			return nil, err
		}
		d.purgeData(dataDirs, res)
	} else {
		if err := d.transition(PhasePreserving); err != nil {
			return nil, err
		}
		d.logger.Info("user data preserved", "dirs", dataDirs)
	}

	// Drop the install root itself when nothing is left in it.
	if !d.dryRun {
		if err := os.Remove(installRoot); err == nil {
			d.logger.Debug("removed empty install root", "install_root", installRoot)
		}
	}

	if err := d.transition(PhaseDone); err != nil {
		return nil, err
	}
	res.Purged = purge
	res.Phase = d.phase

	d.logger.Info("uninstall finished", "purged", purge)
	return res, nil
}

// removeArtifacts deletes shortcuts, files and directories in reverse
// registration order. Shortcuts go first since they reference files.
func (d *Driver) removeArtifacts(ctx context.Context, m *manifest.Manifest, installRoot string, res *Result) {
	for i := len(m.Shortcuts) - 1; i >= 0; i-- {
		s := m.Shortcuts[i]
		spec := shortcut.Spec{
			Name:   s.Name,
			Dir:    d.placement.Dir(s.Place),
			Target: filepath.Join(installRoot, s.Target),
		}
		if d.dryRun {
			d.logger.Info("[dry-run] would remove shortcut", "name", s.Name)
			res.Shortcuts = append(res.Shortcuts, ArtifactResult{Path: s.Name, Outcome: OutcomeSkipped})
			continue
		}
		if err := d.c.Shortcuts.Remove(ctx, spec); err != nil {
			res.Shortcuts = append(res.Shortcuts, ArtifactResult{Path: s.Name, Outcome: OutcomeFailed, Err: err.Error()})
			d.logger.Warn("shortcut removal failed", "name", s.Name, "error", err)
			continue
		}
		res.Shortcuts = append(res.Shortcuts, ArtifactResult{Path: s.Name, Outcome: OutcomeSucceeded})
	}

	for i := len(m.Files) - 1; i >= 0; i-- {
		f := m.Files[i]
		dest := filepath.Join(installRoot, f.Dest)
		if d.dryRun {
			d.logger.Info("[dry-run] would remove file", "dest", dest)
			res.Files = append(res.Files, ArtifactResult{Path: f.Dest, Outcome: OutcomeSkipped})
			continue
		}
		if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
			res.Files = append(res.Files, ArtifactResult{Path: f.Dest, Outcome: OutcomeFailed, Err: err.Error()})
			d.logger.Warn("file removal failed", "dest", dest, "error", err)
			continue
		}
		res.Files = append(res.Files, ArtifactResult{Path: f.Dest, Outcome: OutcomeSucceeded})
	}

	for i := len(m.Dirs) - 1; i >= 0; i-- {
		dir := m.Dirs[i]
		dest := filepath.Join(installRoot, dir.Path)
		if d.dryRun {
			d.logger.Info("[dry-run] would remove directory", "dir", dest)
			res.Dirs = append(res.Dirs, ArtifactResult{Path: dir.Path, Outcome: OutcomeSkipped})
			continue
		}
		// Only empty directories are removed here; a directory still holding
		// user data is left for the purge decision.
		err := os.Remove(dest)
		switch {
		case err == nil || os.IsNotExist(err):
			res.Dirs = append(res.Dirs, ArtifactResult{Path: dir.Path, Outcome: OutcomeSucceeded})
		default:
			res.Dirs = append(res.Dirs, ArtifactResult{Path: dir.Path, Outcome: OutcomeSkipped, Err: err.Error()})
			d.logger.Debug("directory not removed (likely not empty)", "dir", dest)
		}
	}

	if d.dryRun {
		return
	}
	if err := d.c.Registrar.Unregister(ctx, d.cfg.Product.Name); err != nil {
		d.logger.Warn("uninstall entry removal failed", "error", err)
	}
}

// purgeData irreversibly deletes the user data directories. This is the
// only destructive, non-recoverable step of the lifecycle, so it is logged
// before anything is deleted.
func (d *Driver) purgeData(dataDirs []string, res *Result) {
	d.logger.Warn("purging user data directories", "dirs", dataDirs)

	for _, dir := range dataDirs {
		if d.dryRun {
			d.logger.Info("[dry-run] would purge", "dir", dir)
			res.DataDirs = append(res.DataDirs, ArtifactResult{Path: dir, Outcome: OutcomeSkipped})
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			res.DataDirs = append(res.DataDirs, ArtifactResult{Path: dir, Outcome: OutcomeFailed, Err: err.Error()})
			d.logger.Error("data purge failed", "dir", dir, "error", err)
			continue
		}
		res.DataDirs = append(res.DataDirs, ArtifactResult{Path: dir, Outcome: OutcomeSucceeded})
	}
}

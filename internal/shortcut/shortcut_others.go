//go:build !windows

package shortcut

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// desktopProvisioner writes freedesktop .desktop entries
type desktopProvisioner struct {
	logger *slog.Logger
}

// NewProvisioner creates the freedesktop shortcut provisioner
func NewProvisioner(logger *slog.Logger) Provisioner {
	return &desktopProvisioner{logger: logger}
}

func (p *desktopProvisioner) linkPath(spec Spec) string {
	name := strings.ToLower(strings.ReplaceAll(sanitizeName(spec.Name), " ", "-"))
	return filepath.Join(spec.Dir, name+".desktop")
}

// Create writes the .desktop entry described by spec
func (p *desktopProvisioner) Create(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(spec.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shortcut directory: %w", err)
	}

	exec := spec.Target
	if spec.Args != "" {
		exec += " " + spec.Args
	}
	workingDir := spec.WorkingDir
	if workingDir == "" {
		workingDir = filepath.Dir(spec.Target)
	}

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", spec.Name)
	fmt.Fprintf(&b, "Exec=%s\n", exec)
	fmt.Fprintf(&b, "Path=%s\n", workingDir)
	b.WriteString("Terminal=false\n")

	link := p.linkPath(spec)
	if err := os.WriteFile(link, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("failed to write desktop entry %s: %w", link, err)
	}
	return nil
}

// Remove deletes the .desktop entry; a missing entry is treated as success
func (p *desktopProvisioner) Remove(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link := p.linkPath(spec)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove desktop entry %s: %w", link, err)
	}
	return nil
}

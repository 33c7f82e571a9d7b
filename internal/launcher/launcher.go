package launcher

import (
	"context"
	"fmt"
	"os/exec"
)

// Launcher starts an external process without waiting for it to finish.
// Failures are surfaced to the caller but never block the install flow.
type Launcher interface {
	Start(ctx context.Context, dir, command string, args []string) error
}

// ExecLauncher implements Launcher with os/exec
type ExecLauncher struct{}

// NewExecLauncher creates a launcher backed by os/exec
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

// Start launches the command in the given working directory and detaches.
// The process is deliberately not bound to ctx: the launched application
// must outlive the installer process.
func (l *ExecLauncher) Start(ctx context.Context, dir, command string, args []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cmd := exec.Command(command, args...)
	cmd.Dir = dir

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", command, err)
	}

	// Detach so the installer can exit without reaping the child.
	if err := cmd.Process.Release(); err != nil {
		return fmt.Errorf("failed to release %s: %w", command, err)
	}

	return nil
}

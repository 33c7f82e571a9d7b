//go:build windows

package shortcut

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// comProvisioner creates .lnk files through the WScript.Shell COM object,
// falling back to a generated VBScript when COM is unavailable.
type comProvisioner struct {
	logger *slog.Logger
}

// NewProvisioner creates the Windows shortcut provisioner
func NewProvisioner(logger *slog.Logger) Provisioner {
	return &comProvisioner{logger: logger}
}

func (p *comProvisioner) linkPath(spec Spec) string {
	return filepath.Join(spec.Dir, sanitizeName(spec.Name)+".lnk")
}

// Create writes the .lnk file described by spec
func (p *comProvisioner) Create(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link := p.linkPath(spec)
	if err := os.MkdirAll(spec.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create shortcut directory: %w", err)
	}

	if err := p.createCOM(link, spec); err != nil {
		p.logger.Warn("COM shortcut creation failed, falling back to VBScript", "link", link, "error", err)
		return p.createVBS(ctx, link, spec)
	}
	return nil
}

func (p *comProvisioner) createCOM(link string, spec Spec) error {
	_ = ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED)
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("CreateObject: %w", err)
	}
	defer unknown.Release()

	shell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("QueryInterface: %w", err)
	}
	defer shell.Release()

	sc, err := oleutil.CallMethod(shell, "CreateShortcut", link)
	if err != nil {
		return fmt.Errorf("CreateShortcut: %w", err)
	}
	dispatch := sc.ToIDispatch()
	defer dispatch.Release()

	if _, err := oleutil.PutProperty(dispatch, "TargetPath", spec.Target); err != nil {
		return fmt.Errorf("set TargetPath: %w", err)
	}
	if spec.Args != "" {
		if _, err := oleutil.PutProperty(dispatch, "Arguments", spec.Args); err != nil {
			return fmt.Errorf("set Arguments: %w", err)
		}
	}
	workingDir := spec.WorkingDir
	if workingDir == "" {
		workingDir = filepath.Dir(spec.Target)
	}
	if _, err := oleutil.PutProperty(dispatch, "WorkingDirectory", workingDir); err != nil {
		return fmt.Errorf("set WorkingDirectory: %w", err)
	}
	if _, err := oleutil.PutProperty(dispatch, "IconLocation", spec.Target+",0"); err != nil {
		return fmt.Errorf("set IconLocation: %w", err)
	}
	if _, err := oleutil.CallMethod(dispatch, "Save"); err != nil {
		return fmt.Errorf("Save: %w", err)
	}

	return nil
}

// createVBS writes and runs a temporary VBScript that creates the shortcut.
// Last resort for hosts where the COM bridge misbehaves.
func (p *comProvisioner) createVBS(ctx context.Context, link string, spec Spec) error {
	workingDir := spec.WorkingDir
	if workingDir == "" {
		workingDir = filepath.Dir(spec.Target)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Set ws = CreateObject(\"WScript.Shell\")\r\n")
	fmt.Fprintf(&b, "Set sc = ws.CreateShortcut(\"%s\")\r\n", link)
	fmt.Fprintf(&b, "sc.TargetPath = \"%s\"\r\n", spec.Target)
	if spec.Args != "" {
		fmt.Fprintf(&b, "sc.Arguments = \"%s\"\r\n", spec.Args)
	}
	fmt.Fprintf(&b, "sc.WorkingDirectory = \"%s\"\r\n", workingDir)
	fmt.Fprintf(&b, "sc.IconLocation = \"%s,0\"\r\n", spec.Target)
	fmt.Fprintf(&b, "sc.Save\r\n")

	script := filepath.Join(os.TempDir(), fmt.Sprintf("appsetup_lnk_%d.vbs", os.Getpid()))
	if err := os.WriteFile(script, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write VBScript: %w", err)
	}
	defer func() {
		_ = os.Remove(script)
	}()

	cmd := exec.CommandContext(ctx, "cscript", "//Nologo", script)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cscript failed: %w: %s", err, string(output))
	}
	return nil
}

// Remove deletes the .lnk file; a missing link is treated as success
func (p *comProvisioner) Remove(ctx context.Context, spec Spec) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	link := p.linkPath(spec)
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove shortcut %s: %w", link, err)
	}
	return nil
}

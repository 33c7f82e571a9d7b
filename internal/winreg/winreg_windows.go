//go:build windows

package winreg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyBase = `Software\Microsoft\Windows\CurrentVersion\Uninstall\`

// registryRegistrar writes the HKCU uninstall key so the product shows up
// in the installed-programs list without requiring elevation.
type registryRegistrar struct {
	logger *slog.Logger
}

// NewRegistrar creates the Windows registry registrar
func NewRegistrar(logger *slog.Logger) Registrar {
	return &registryRegistrar{logger: logger}
}

// Register writes the uninstall entry for the product
func (r *registryRegistrar) Register(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.ProductName == "" {
		return fmt.Errorf("empty product name")
	}

	k, _, err := registry.CreateKey(registry.CURRENT_USER, uninstallKeyBase+e.ProductName, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to create uninstall key: %w", err)
	}
	defer k.Close()

	values := map[string]string{
		"DisplayName":     e.ProductName,
		"DisplayVersion":  e.DisplayVersion,
		"Publisher":       e.Publisher,
		"InstallLocation": e.InstallLocation,
		"UninstallString": e.UninstallString,
		"DisplayIcon":     e.DisplayIcon,
		"InstallDate":     time.Now().Format("20060102"),
	}
	for name, v := range values {
		if err := k.SetStringValue(name, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	for _, name := range []string{"NoModify", "NoRepair"} {
		if err := k.SetDWordValue(name, 1); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	r.logger.Info("registered uninstall entry", "product", e.ProductName)
	return nil
}

// Unregister deletes the uninstall entry; a missing key is treated as success
func (r *registryRegistrar) Unregister(ctx context.Context, productName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := registry.DeleteKey(registry.CURRENT_USER, uninstallKeyBase+productName)
	if err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("failed to delete uninstall key: %w", err)
	}
	return nil
}

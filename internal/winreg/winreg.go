// Package winreg maintains the platform uninstall entry ("Apps & Features"
// on Windows). On other platforms the registrar is a logged no-op so the
// install flow stays identical everywhere.
package winreg

import "context"

// Entry is the uninstall registration for an installed product
type Entry struct {
	ProductName     string
	DisplayVersion  string
	Publisher       string
	InstallLocation string
	UninstallString string
	DisplayIcon     string
}

// Registrar registers and unregisters the product with the platform's
// installed-programs list. Failures are always non-fatal for the caller.
type Registrar interface {
	Register(ctx context.Context, e Entry) error
	Unregister(ctx context.Context, productName string) error
}

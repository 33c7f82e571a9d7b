// Package envpaths resolves platform path conventions for the command layer.
// The install and uninstall drivers never call into this package; they only
// receive the resolved absolute paths.
package envpaths

// Paths holds the resolved environment roots for a product
type Paths struct {
	// InstallRoot is where the application payload is installed
	InstallRoot string
	// AppDataRoot is the shared application data root
	AppDataRoot string
	// UserDocsRoot is the user document root
	UserDocsRoot string
	// Desktop is the directory desktop shortcuts are placed in
	Desktop string
	// StartMenu is the start menu (or application launcher) directory
	StartMenu string
}

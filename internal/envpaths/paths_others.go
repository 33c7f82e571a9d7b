//go:build !windows

package envpaths

import (
	"os"
	"path/filepath"
)

// Resolve returns XDG-style roots for the product
func Resolve(product string) Paths {
	home, _ := os.UserHomeDir()

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = filepath.Join(home, ".local", "share")
	}
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = filepath.Join(home, ".local", "state")
	}

	return Paths{
		InstallRoot:  filepath.Join(dataHome, product),
		AppDataRoot:  filepath.Join(stateHome, product),
		UserDocsRoot: filepath.Join(home, "Documents", product),
		Desktop:      filepath.Join(home, "Desktop"),
		StartMenu:    filepath.Join(dataHome, "applications"),
	}
}

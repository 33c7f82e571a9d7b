//go:build windows

package envpaths

import (
	"os"
	"path/filepath"
)

// Resolve returns the conventional Windows roots for the product
func Resolve(product string) Paths {
	home, _ := os.UserHomeDir()

	programFiles := os.Getenv("ProgramFiles")
	if programFiles == "" {
		programFiles = `C:\Program Files`
	}
	programData := os.Getenv("ProgramData")
	if programData == "" {
		programData = `C:\ProgramData`
	}
	appData := os.Getenv("AppData")
	if appData == "" {
		appData = filepath.Join(home, "AppData", "Roaming")
	}

	return Paths{
		InstallRoot:  filepath.Join(programFiles, product),
		AppDataRoot:  filepath.Join(programData, product),
		UserDocsRoot: filepath.Join(home, "Documents", product),
		Desktop:      filepath.Join(home, "Desktop"),
		StartMenu:    filepath.Join(appData, "Microsoft", "Windows", "Start Menu", "Programs", product),
	}
}

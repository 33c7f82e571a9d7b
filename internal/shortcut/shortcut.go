package shortcut

import (
	"context"
	"regexp"
	"strings"

	"github.com/kodaira/appsetup/internal/manifest"
)

// Spec describes one shortcut to provision
type Spec struct {
	// Name is the display name, without extension
	Name string
	// Dir is the directory the link file is placed in
	Dir string
	// Target is the absolute path of the launched executable
	Target string
	// Args are the literal command arguments, may be empty
	Args string
	// WorkingDir is the working directory for the launched process
	WorkingDir string
}

// Provisioner creates and removes shortcuts. Remove is idempotent: removing
// a shortcut that does not exist succeeds.
type Provisioner interface {
	Create(ctx context.Context, spec Spec) error
	Remove(ctx context.Context, spec Spec) error
}

// Placement maps manifest shortcut placements to resolved directories
type Placement struct {
	Desktop   string
	StartMenu string
}

// Dir returns the directory for the given placement
func (p Placement) Dir(place manifest.Place) string {
	if place == manifest.PlaceDesktop {
		return p.Desktop
	}
	return p.StartMenu
}

var unsafeNameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// sanitizeName strips characters that are invalid in link file names
func sanitizeName(name string) string {
	name = unsafeNameChars.ReplaceAllString(name, "_")
	return strings.TrimSpace(name)
}

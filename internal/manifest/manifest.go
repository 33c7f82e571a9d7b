package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// OverwritePolicy defines how a file entry treats a pre-existing destination
type OverwritePolicy string

const (
	// OverwriteAlways replaces the destination unconditionally
	OverwriteAlways OverwritePolicy = "always"
	// OverwriteSkipIfNewer keeps the destination when it is newer than the source
	OverwriteSkipIfNewer OverwritePolicy = "skip-if-newer"
)

// DataRoot names the base directory a data dir entry is resolved against
type DataRoot string

const (
	DataRootInstall  DataRoot = "install"
	DataRootAppData  DataRoot = "appdata"
	DataRootUserDocs DataRoot = "userdocs"
)

// Place names where a shortcut entry is provisioned
type Place string

const (
	PlaceDesktop   Place = "desktop"
	PlaceStartMenu Place = "startmenu"
)

// Manifest is the declarative description of everything the installer manages.
// Entry order within each list is execution order; the uninstaller walks the
// same lists in reverse.
type Manifest struct {
	Files     []FileEntry     `yaml:"files"`
	Dirs      []DirEntry      `yaml:"dirs"`
	Shortcuts []ShortcutEntry `yaml:"shortcuts"`
	DataDirs  []DataDirEntry  `yaml:"data_dirs"`
	Run       *RunEntry       `yaml:"run"`
}

// FileEntry maps a payload file to a destination under the install root
type FileEntry struct {
	Source    string          `yaml:"source"`
	Dest      string          `yaml:"dest"`
	Overwrite OverwritePolicy `yaml:"overwrite"`
}

// DirEntry declares a directory to create under the install root
type DirEntry struct {
	Path string `yaml:"path"`
	Mode string `yaml:"mode"`
}

// ShortcutEntry declares a shortcut to the installed application.
// An empty Task makes the entry unconditional; a non-empty Task gates it on
// the operator-selected task set (e.g. "desktopicon").
type ShortcutEntry struct {
	Name   string `yaml:"name"`
	Target string `yaml:"target"`
	Args   string `yaml:"args"`
	Task   string `yaml:"task"`
	Place  Place  `yaml:"place"`
}

// DataDirEntry declares a user-data directory scoped by the uninstall
// purge decision. It is never touched during install.
type DataDirEntry struct {
	Path string   `yaml:"path"`
	Root DataRoot `yaml:"root"`
}

// RunEntry declares the optional post-install command
type RunEntry struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	When    string   `yaml:"when"`
}

// DataRoots holds the resolved base directories for data dir entries
type DataRoots struct {
	Install  string
	AppData  string
	UserDocs string
}

// Load reads and parses a manifest file
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest file: %w", err)
	}

	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	return &m, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (m *Manifest) applyDefaults() {
	for i := range m.Files {
		if m.Files[i].Overwrite == "" {
			m.Files[i].Overwrite = OverwriteAlways
		}
	}
	for i := range m.Dirs {
		if m.Dirs[i].Mode == "" {
			m.Dirs[i].Mode = "0755"
		}
	}
	for i := range m.Shortcuts {
		if m.Shortcuts[i].Place == "" {
			m.Shortcuts[i].Place = PlaceStartMenu
		}
	}
	for i := range m.DataDirs {
		if m.DataDirs[i].Root == "" {
			m.DataDirs[i].Root = DataRootInstall
		}
	}
	if m.Run != nil && m.Run.When == "" {
		m.Run.When = "after-install"
	}
}

// Validate checks the manifest for errors
func (m *Manifest) Validate() error {
	for i, f := range m.Files {
		if f.Source == "" {
			return fmt.Errorf("files[%d]: source is required", i)
		}
		if f.Dest == "" {
			return fmt.Errorf("files[%d]: dest is required", i)
		}
		if err := checkRelative("files", i, f.Dest); err != nil {
			return err
		}
		switch f.Overwrite {
		case OverwriteAlways, OverwriteSkipIfNewer:
			// valid
		default:
			return fmt.Errorf("files[%d]: invalid overwrite policy: %s (must be always or skip-if-newer)", i, f.Overwrite)
		}
	}

	for i, d := range m.Dirs {
		if d.Path == "" {
			return fmt.Errorf("dirs[%d]: path is required", i)
		}
		if err := checkRelative("dirs", i, d.Path); err != nil {
			return err
		}
		if _, err := d.FileMode(); err != nil {
			return fmt.Errorf("dirs[%d]: invalid mode %q: %w", i, d.Mode, err)
		}
	}

	for i, s := range m.Shortcuts {
		if s.Name == "" {
			return fmt.Errorf("shortcuts[%d]: name is required", i)
		}
		if s.Target == "" {
			return fmt.Errorf("shortcuts[%d]: target is required", i)
		}
		if err := checkRelative("shortcuts", i, s.Target); err != nil {
			return err
		}
		switch s.Place {
		case PlaceDesktop, PlaceStartMenu:
			// valid
		default:
			return fmt.Errorf("shortcuts[%d]: invalid place: %s (must be desktop or startmenu)", i, s.Place)
		}
	}

	for i, d := range m.DataDirs {
		if d.Path == "" {
			return fmt.Errorf("data_dirs[%d]: path is required", i)
		}
		if err := checkRelative("data_dirs", i, d.Path); err != nil {
			return err
		}
		switch d.Root {
		case DataRootInstall, DataRootAppData, DataRootUserDocs:
			// valid
		default:
			return fmt.Errorf("data_dirs[%d]: invalid root: %s (must be install, appdata or userdocs)", i, d.Root)
		}
	}

	if m.Run != nil {
		if m.Run.Command == "" {
			return fmt.Errorf("run: command is required")
		}
		if err := checkRelative("run", 0, m.Run.Command); err != nil {
			return err
		}
		if m.Run.When != "after-install" {
			return fmt.Errorf("run: invalid when: %s (must be after-install)", m.Run.When)
		}
	}

	return nil
}

// checkRelative enforces the invariant that destinations are expressed
// relative to the install root and cannot escape it.
func checkRelative(list string, i int, path string) error {
	if filepath.IsAbs(path) {
		return fmt.Errorf("%s[%d]: path must be relative to the install root: %s", list, i, path)
	}
	if !filepath.IsLocal(path) {
		return fmt.Errorf("%s[%d]: path escapes the install root: %s", list, i, path)
	}
	return nil
}

// FileMode parses the entry's octal permission policy
func (d DirEntry) FileMode() (os.FileMode, error) {
	v, err := strconv.ParseUint(d.Mode, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

// ResolveDataDirs maps every data dir entry to an absolute path using the
// supplied roots. Resolution order follows the manifest.
func (m *Manifest) ResolveDataDirs(roots DataRoots) []string {
	dirs := make([]string, 0, len(m.DataDirs))
	for _, d := range m.DataDirs {
		base := roots.Install
		switch d.Root {
		case DataRootAppData:
			base = roots.AppData
		case DataRootUserDocs:
			base = roots.UserDocs
		}
		dirs = append(dirs, filepath.Join(base, d.Path))
	}
	return dirs
}

package i18n

import (
	"embed"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no locale is configured or a lookup misses
const DefaultLocale = "en"

// Messages holds the operator-facing phrases for one locale
type Messages struct {
	PurgePrompt       string `yaml:"purge_prompt"`
	Installing        string `yaml:"installing"`
	Uninstalling      string `yaml:"uninstalling"`
	InstallComplete   string `yaml:"install_complete"`
	UninstallComplete string `yaml:"uninstall_complete"`
	DataPreserved     string `yaml:"data_preserved"`
	DataPurged        string `yaml:"data_purged"`
}

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	loadOnce sync.Once
	catalogs map[string]Messages
	loadErr  error
)

func load() {
	catalogs = make(map[string]Messages)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		loadErr = fmt.Errorf("failed to read embedded locales: %w", err)
		return
	}

	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))

		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			loadErr = fmt.Errorf("failed to read locale %s: %w", name, err)
			return
		}

		var msgs Messages
		if err := yaml.Unmarshal(data, &msgs); err != nil {
			loadErr = fmt.Errorf("failed to parse locale %s: %w", name, err)
			return
		}

		catalogs[name] = msgs
	}

	if _, ok := catalogs[DefaultLocale]; !ok {
		loadErr = fmt.Errorf("default locale %q missing from embedded catalog", DefaultLocale)
	}
}

// Lookup returns the message catalog for the given locale, falling back to
// the default locale for unknown identifiers.
func Lookup(locale string) (Messages, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return Messages{}, loadErr
	}

	if msgs, ok := catalogs[locale]; ok {
		return msgs, nil
	}
	return catalogs[DefaultLocale], nil
}

// Supported reports whether the locale has its own catalog
func Supported(locale string) bool {
	loadOnce.Do(load)
	if loadErr != nil {
		return false
	}
	_, ok := catalogs[locale]
	return ok
}

// Locales returns the sorted list of available locale identifiers
func Locales() []string {
	loadOnce.Do(load)
	out := make([]string, 0, len(catalogs))
	for name := range catalogs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

package folders

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest declares the cache folders an installation may place artifacts in.
type Manifest struct {
	Folders []Entry `yaml:"folders"`
	// DeactivateMissing turns off registered folders that are no longer listed.
	DeactivateMissing bool `yaml:"deactivate_missing"`
}

type Entry struct {
	Name     string `yaml:"name"`
	Path     string `yaml:"path"`
	Priority int    `yaml:"priority"`
	Max      string `yaml:"max"`
	Active   *bool  `yaml:"active"`

	maxBytes int64
}

// MaxBytes is the parsed capacity of the entry.
func (e Entry) MaxBytes() int64 { return e.maxBytes }

// IsActive defaults to true when the manifest omits the flag.
func (e Entry) IsActive() bool { return e.Active == nil || *e.Active }

// Load reads and validates a manifest file.
func Load(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	return Parse(b)
}

// Parse validates a manifest and sorts its entries by priority.
func Parse(b []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, err
	}
	seen := make(map[string]bool, len(m.Folders))
	for i := range m.Folders {
		e := &m.Folders[i]
		e.Path = strings.TrimSpace(e.Path)
		if e.Path != "/" {
			e.Path = strings.TrimRight(e.Path, "/")
		}
		if e.Path == "" {
			return Manifest{}, fmt.Errorf("folders[%d].path is required", i)
		}
		if seen[e.Path] {
			return Manifest{}, fmt.Errorf("folders[%d].path %q is listed twice", i, e.Path)
		}
		seen[e.Path] = true
		if e.Name == "" {
			e.Name = e.Path
		}
		if e.Priority < 0 {
			return Manifest{}, fmt.Errorf("folders[%d].priority must not be negative", i)
		}
		size, err := ParseBytes(e.Max)
		if err != nil {
			return Manifest{}, fmt.Errorf("folders[%d].max: %w", i, err)
		}
		e.maxBytes = size
	}
	sort.SliceStable(m.Folders, func(i, j int) bool {
		return m.Folders[i].Priority < m.Folders[j].Priority
	})
	return m, nil
}

package knowledge

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceOverride carries optional per-file metadata that wins over what the
// processor derives from the file itself.
type SourceOverride struct {
	Title    string `yaml:"title"`
	Category string `yaml:"category"`
	Language string `yaml:"language"`
	Insurer  string `yaml:"insurer"` // Applied to every section of the document
}

// Manifest is the optional sources.yaml file placed alongside the corpus.
type Manifest struct {
	Sources map[string]SourceOverride `yaml:"sources"`
}

// LoadManifest reads a corpus manifest. A missing file returns an empty
// manifest; a malformed one is an error.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Manifest{Sources: map[string]SourceOverride{}}, nil
		}
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	if manifest.Sources == nil {
		manifest.Sources = map[string]SourceOverride{}
	}

	return &manifest, nil
}

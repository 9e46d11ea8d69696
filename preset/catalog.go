package preset

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultBuiltins returns the stock presets in canonical order.
func DefaultBuiltins() []Preset {
	return []Preset{
		{ID: "desktop-1080", Label: "Desktop", Width: Px(1920), Height: Px(1080), Description: "Full HD monitor"},
		{ID: "laptop-1366", Label: "Laptop", Width: Px(1366), Height: Px(768)},
		{ID: "tablet-768", Label: "Tablet", Width: Px(768), Height: Px(1024), Description: "Portrait tablet"},
		{ID: "mobile-375", Label: "Mobile", Width: Px(375), Height: Px(812), Description: "Modern phone"},
		{ID: "responsive", Label: "Responsive", Width: Token(TokenAuto), Height: Token(TokenAuto), Description: "Fill the window"},
	}
}

type catalogFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadCatalog reads built-in presets from a YAML file:
//
//	presets:
//	  - id: desktop-1080
//	    label: Desktop
//	    width: 1920
//	    height: 1080
//
// An empty path or a missing file yields DefaultBuiltins.
func LoadCatalog(path string) ([]Preset, error) {
	if path == "" {
		return DefaultBuiltins(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultBuiltins(), nil
	}
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	if len(f.Presets) == 0 {
		return nil, fmt.Errorf("catalog %s: no presets", path)
	}
	return f.Presets, nil
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"threatmosaic/domain/core/valueobjects"
)

// Settings are the user-tunable explorer settings, loaded from an optional
// YAML file and hot-reloadable at runtime. They only affect presentation and
// default visibility; the canonical graph state never depends on them.
type Settings struct {
	// Hidden lists groups that start out filtered from the rendered view
	Hidden []string `yaml:"hidden"`

	// Styles maps group names to legend colors. Groups without an entry
	// render with DefaultColor.
	Styles map[string]string `yaml:"styles"`

	// DefaultRelationship is the label used when relating a newly created
	// threat scenario to selected nodes
	DefaultRelationship string `yaml:"default_relationship"`
}

// DefaultColor is the style for groups outside the known enumeration
const DefaultColor = "#ccc"

// DefaultSettings mirrors the legend of the original explorer UI
func DefaultSettings() Settings {
	return Settings{
		Styles: map[string]string{
			valueobjects.GroupThreatScenario.String(): "#ff7f0e",
			valueobjects.GroupTechnique.String():      "#1f77b4",
			valueobjects.GroupSubTechnique.String():   "#aec7e8",
			valueobjects.GroupCampaign.String():       "#98df8a",
			valueobjects.GroupTool.String():           "#ffbb78",
			valueobjects.GroupTactic.String():         "#c5b0d5",
			valueobjects.GroupDataSource.String():     "#c49c94",
			valueobjects.GroupDataComponent.String():  "#f7b6d2",
			valueobjects.GroupMitigation.String():     "#2ca02c",
		},
		DefaultRelationship: "USES_TECHNIQUE",
	}
}

// LoadSettings reads the YAML settings file, layering it over the defaults.
// An empty path returns the defaults unchanged.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var file Settings
	if err := yaml.Unmarshal(data, &file); err != nil {
		return settings, fmt.Errorf("parse settings file: %w", err)
	}

	settings.Hidden = file.Hidden
	for group, color := range file.Styles {
		settings.Styles[group] = color
	}
	if file.DefaultRelationship != "" {
		settings.DefaultRelationship = file.DefaultRelationship
	}
	return settings, nil
}

// Visibility derives the initial visibility configuration from the hidden
// list
func (s Settings) Visibility() valueobjects.Visibility {
	visibility := valueobjects.NewVisibility()
	for _, group := range s.Hidden {
		visibility[valueobjects.NodeGroup(group)] = false
	}
	return visibility
}

// Color returns the legend color for a group
func (s Settings) Color(group valueobjects.NodeGroup) string {
	if color, ok := s.Styles[group.String()]; ok {
		return color
	}
	return DefaultColor
}

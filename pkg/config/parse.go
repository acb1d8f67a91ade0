package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseChipConfigYAML parses a ChipConfig from YAML bytes, applies defaults,
// and validates it. This is used for APIs where config is provided as
// payload (not via filesystem).
func ParseChipConfigYAML(data []byte) (*ChipConfig, error) {
	var cfg ChipConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse chip config yaml: %w", err)
	}

	applyChipDefaults(&cfg)

	if err := validateChipConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid chip config: %w", err)
	}

	return &cfg, nil
}

// ParseChipConfigYAMLString parses a ChipConfig from a YAML string and validates it.
func ParseChipConfigYAMLString(yamlText string) (*ChipConfig, error) {
	return ParseChipConfigYAML([]byte(yamlText))
}

// ParseScenarioYAML parses a Scenario from YAML bytes, applies defaults,
// and validates it. This is used for APIs where scenario is provided as
// payload (not via filesystem).
func ParseScenarioYAML(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}

	applyScenarioDefaults(&scenario)

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// ParseScenarioYAMLString parses a Scenario from a YAML string and validates it.
func ParseScenarioYAMLString(yamlText string) (*Scenario, error) {
	return ParseScenarioYAML([]byte(yamlText))
}

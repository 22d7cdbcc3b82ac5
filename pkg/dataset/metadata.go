package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MetadataFile is the name of the dataset descriptor inside a dataset directory.
const MetadataFile = "dataset.yaml"

// Metadata defines the structure of the dataset.yaml file.
type Metadata struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Version     string            `yaml:"version,omitempty"`
	Tags        []string          `yaml:"tags,omitempty"`
	Splits      map[string]string `yaml:"splits"` // split name -> file relative to the dataset directory
}

// LoadMetadata reads and parses a dataset.yaml file.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset metadata: %w", err)
	}

	var metadata Metadata
	if err := yaml.Unmarshal(data, &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse dataset metadata: %w", err)
	}
	return &metadata, nil
}

// SaveMetadata writes m to path as YAML.
func SaveMetadata(path string, m *Metadata) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode dataset metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write dataset metadata: %w", err)
	}
	return nil
}

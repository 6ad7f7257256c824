// Package pluginsdk defines the plugin manifest format and the subprocess
// RPC contracts a plugin's tool and provider binaries implement.
package pluginsdk

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// ManifestFilename is the file every plugin directory must contain.
const ManifestFilename = "plugin.yaml"

var namePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ErrInvalidName is returned when a plugin or component name fails the
// shared naming pattern.
var ErrInvalidName = errors.New("pluginsdk: name must match ^[a-z0-9]([a-z0-9-]*[a-z0-9])?$ and be 1-64 chars")

// Manifest is the parsed, validated contents of a plugin.yaml file.
type Manifest struct {
	Name        string   `yaml:"name"`
	Version     string   `yaml:"version"`
	Description string   `yaml:"description,omitempty"`
	Commands    []string `yaml:"commands,omitempty"`
	Tools       []string `yaml:"tools,omitempty"`
	Hooks       bool     `yaml:"hooks,omitempty"`
	Skills      []string `yaml:"skills,omitempty"`
	Providers   []string `yaml:"providers,omitempty"`
}

// Validate checks the manifest's fields against the naming and length
// rules from the data model.
func (m *Manifest) Validate() error {
	if err := validateName(m.Name); err != nil {
		return fmt.Errorf("manifest name %q: %w", m.Name, err)
	}
	if m.Version == "" {
		return errors.New("pluginsdk: version is required")
	}
	return nil
}

func validateName(name string) error {
	if len(name) < 1 || len(name) > 64 {
		return ErrInvalidName
	}
	if !namePattern.MatchString(name) {
		return ErrInvalidName
	}
	return nil
}

// DecodeManifest parses and validates manifest YAML bytes.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("pluginsdk: decode manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

package registry

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the embedded registry shipped with the tool.
func Default() (*Registry, error) {
	reg, err := Parse(defaultsYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded registry is invalid: %w", err)
	}
	return reg, nil
}

// Load reads and validates a registry from r.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}
	return Parse(data)
}

// LoadFile reads and validates a registry from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}
	defer f.Close()

	reg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("registry file %s: %w", path, err)
	}
	return reg, nil
}

// Parse decodes and validates registry YAML.
func Parse(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to decode registry YAML: %w", err)
	}
	if err := validate.Struct(&reg); err != nil {
		return nil, fmt.Errorf("registry validation failed: %w", err)
	}
	return &reg, nil
}

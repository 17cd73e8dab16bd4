// Package registry defines the declarative package registry consumed by the
// provisioning engine: which packages are required, how to probe for them,
// and how to install them per distribution.
package registry

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// CommandList is an ordered list of shell command strings. In YAML it may be
// written either as a single scalar or as a sequence; the scalar form is
// normalized to a one-element list at the boundary so the rest of the system
// only ever sees lists.
type CommandList []string

// UnmarshalYAML accepts both a scalar command and a sequence of commands.
func (c *CommandList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = CommandList{s}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*c = CommandList(list)
		return nil
	default:
		return fmt.Errorf("line %d: command list must be a string or a sequence", value.Line)
	}
}

// Check is an availability probe: a command and the exit code that marks the
// package as satisfied. In YAML a plain scalar means "command, expect 0".
type Check struct {
	Command    string `yaml:"command" validate:"required"`
	ExpectCode int    `yaml:"expect_code"`
}

// UnmarshalYAML accepts both a scalar command and an explicit mapping.
func (c *Check) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var s string
		if err := value.Decode(&s); err != nil {
			return err
		}
		*c = Check{Command: s}
		return nil
	}

	type plain Check
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Check(p)
	return nil
}

// Package describes one required software package. Descriptors are defined
// statically at startup and never mutated.
type Package struct {
	// Name uniquely identifies the package within the registry.
	Name string `yaml:"name" validate:"required"`

	// Comment is a short human description shown in notices.
	Comment string `yaml:"comment"`

	// Check probes whether the package is already satisfied.
	Check Check `yaml:"check"`

	// Install maps a distribution key to the install recipe for it.
	// A missing key means no automated recipe for that distribution;
	// an empty map means manual-only everywhere.
	Install map[string]CommandList `yaml:"install"`
}

// Installable reports whether the package has an automated recipe for distro.
func (p Package) Installable(distro string) bool {
	_, ok := p.Install[distro]
	return ok
}

// Registry is the immutable ordered collection of package descriptors plus
// the per-distribution pre-install table.
type Registry struct {
	// Packages in declaration order. Order is preserved through probing
	// and planning.
	Packages []Package `yaml:"packages" validate:"required,unique=Name,dive"`

	// PreInstall maps a distribution key to commands run once per process
	// before the first batch install for that distribution.
	PreInstall map[string]CommandList `yaml:"pre_install"`
}

// Names returns the package names in registry order.
func Names(pkgs []Package) []string {
	names := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		names = append(names, p.Name)
	}
	return names
}

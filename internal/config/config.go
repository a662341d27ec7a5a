// Package config implements the configuration data model and loader: the
// "load once, fmt.Errorf-wrapped, Validate returns []error" shape,
// restructured around concerns/signals/watches/reports.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the configuration root: a declared-order sequence of concerns
// plus an optional shared `defined` block.
type Config struct {
	Concerns []Concern
	Defined  Defined
}

// Defined holds shared watch/report/signal definitions addressable via
// "#defined/<kind>/<name>" references.
type Defined struct {
	Watches map[string]WatchConfig  `yaml:"watches"`
	Reports map[string]ReportConfig `yaml:"reports"`
	Signals map[string]Signal       `yaml:"signals"`
}

// Concern is a named container of signals, plus opaque stakeholder
// metadata passed through to notification outputs untouched.
type Concern struct {
	Name         string      `yaml:"-"`
	Signals      []SignalRef `yaml:"signals"`
	Stakeholders interface{} `yaml:"stakeholders,omitempty"`
}

// Signal is the (watch, report, optional notify) triple.
type Signal struct {
	Watch  WatchRef               `yaml:"watch"`
	Report ReportRef              `yaml:"report"`
	Notify map[string]NotifyValue `yaml:"notify,omitempty"`
}

// UnmarshalYAML preserves the declared order of the `concerns` mapping,
// since the processing runner must traverse concerns in declared order
// even though the schema shapes them as a map keyed by id.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Concerns yaml.Node `yaml:"concerns"`
		Defined  Defined   `yaml:"defined"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	c.Defined = raw.Defined

	if raw.Concerns.Kind == 0 {
		return nil
	}
	if raw.Concerns.Kind != yaml.MappingNode {
		return fmt.Errorf("concerns: expected a mapping")
	}
	content := raw.Concerns.Content
	for i := 0; i+1 < len(content); i += 2 {
		var name string
		if err := content[i].Decode(&name); err != nil {
			return fmt.Errorf("concerns: decoding key: %w", err)
		}
		var cc Concern
		if err := content[i+1].Decode(&cc); err != nil {
			return fmt.Errorf("concerns[%s]: %w", name, err)
		}
		cc.Name = name
		c.Concerns = append(c.Concerns, cc)
	}
	return nil
}

// Load reads and parses a configuration file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration YAML.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	return &cfg, nil
}

// HasConcern reports whether a concern with the given name exists.
func (c *Config) HasConcern(name string) bool {
	for _, cc := range c.Concerns {
		if cc.Name == name {
			return true
		}
	}
	return false
}

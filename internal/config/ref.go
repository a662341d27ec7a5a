package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RefKind is the <kind> segment of a "#defined/<kind>/<name>" reference.
type RefKind string

const (
	RefWatches RefKind = "watches"
	RefReports RefKind = "reports"
	RefSignals RefKind = "signals"
)

// ParseRef parses a "#defined/<kind>/<name>" reference string.
func ParseRef(s string) (RefKind, string, error) {
	const prefix = "#defined/"
	if !strings.HasPrefix(s, prefix) {
		return "", "", fmt.Errorf("Invalid reference format")
	}
	rest := strings.TrimPrefix(s, prefix)
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("Invalid reference format")
	}
	switch RefKind(parts[0]) {
	case RefWatches, RefReports, RefSignals:
		return RefKind(parts[0]), parts[1], nil
	default:
		return "", "", fmt.Errorf("Invalid reference format")
	}
}

// isUseOnlyRef reports whether a mapping node is exactly {use: "..."} —
// distinguishing a reference from an inline object that happens to carry
// a field named "use".
func isUseOnlyRef(node *yaml.Node) (string, bool) {
	if node.Kind != yaml.MappingNode || len(node.Content) != 2 {
		return "", false
	}
	var key string
	if err := node.Content[0].Decode(&key); err != nil || key != "use" {
		return "", false
	}
	var use string
	if err := node.Content[1].Decode(&use); err != nil {
		return "", false
	}
	return use, true
}

// WatchRef is a watch field value: either an inline WatchConfig or a
// "#defined/watches/<name>" reference.
type WatchRef struct {
	Use    string
	Inline *WatchConfig
}

func (w *WatchRef) UnmarshalYAML(node *yaml.Node) error {
	if use, ok := isUseOnlyRef(node); ok {
		w.Use = use
		return nil
	}
	var inline WatchConfig
	if err := node.Decode(&inline); err != nil {
		return err
	}
	w.Inline = &inline
	return nil
}

// ReportRef is a report field value: either an inline ReportConfig or a
// "#defined/reports/<name>" reference.
type ReportRef struct {
	Use    string
	Inline *ReportConfig
}

func (r *ReportRef) UnmarshalYAML(node *yaml.Node) error {
	if use, ok := isUseOnlyRef(node); ok {
		r.Use = use
		return nil
	}
	var inline ReportConfig
	if err := node.Decode(&inline); err != nil {
		return err
	}
	r.Inline = &inline
	return nil
}

// SignalRef is a concern's signal list entry: either an inline Signal or
// a "#defined/signals/<name>" reference.
type SignalRef struct {
	Use    string
	Inline *Signal
}

func (s *SignalRef) UnmarshalYAML(node *yaml.Node) error {
	if use, ok := isUseOnlyRef(node); ok {
		s.Use = use
		return nil
	}
	var inline Signal
	if err := node.Decode(&inline); err != nil {
		return err
	}
	s.Inline = &inline
	return nil
}

// ResolveWatch resolves a WatchRef to a concrete WatchConfig.
func (c *Config) ResolveWatch(ref WatchRef) (*WatchConfig, error) {
	if ref.Inline != nil {
		return ref.Inline, nil
	}
	kind, name, err := ParseRef(ref.Use)
	if err != nil {
		return nil, err
	}
	if kind != RefWatches {
		return nil, fmt.Errorf("Expected a watches reference, got %s", kind)
	}
	wc, ok := c.Defined.Watches[name]
	if !ok {
		return nil, fmt.Errorf("watches '%s' not found", name)
	}
	return &wc, nil
}

// ResolveReport resolves a ReportRef to a concrete ReportConfig.
func (c *Config) ResolveReport(ref ReportRef) (*ReportConfig, error) {
	if ref.Inline != nil {
		return ref.Inline, nil
	}
	kind, name, err := ParseRef(ref.Use)
	if err != nil {
		return nil, err
	}
	if kind != RefReports {
		return nil, fmt.Errorf("Expected a reports reference, got %s", kind)
	}
	rc, ok := c.Defined.Reports[name]
	if !ok {
		return nil, fmt.Errorf("reports '%s' not found", name)
	}
	return &rc, nil
}

// ResolveSignal resolves a SignalRef to a concrete Signal.
func (c *Config) ResolveSignal(ref SignalRef) (*Signal, error) {
	if ref.Inline != nil {
		return ref.Inline, nil
	}
	kind, name, err := ParseRef(ref.Use)
	if err != nil {
		return nil, err
	}
	if kind != RefSignals {
		return nil, fmt.Errorf("Expected a signals reference, got %s", kind)
	}
	s, ok := c.Defined.Signals[name]
	if !ok {
		return nil, fmt.Errorf("signals '%s' not found", name)
	}
	return &s, nil
}

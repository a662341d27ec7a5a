package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// WatchKind is the tagged-union discriminator for watch configurations:
// exactly one of {jq, regex, xpath, tsq, ast-grep}.
type WatchKind string

const (
	WatchJQ      WatchKind = "jq"
	WatchRegex   WatchKind = "regex"
	WatchXPath   WatchKind = "xpath"
	WatchTSQ     WatchKind = "tsq"
	WatchASTGrep WatchKind = "ast-grep"
)

// WatchConfig is the closed tagged union of watch kinds plus the common
// `include`/`exclude` glob sets. Only the fields for Type are meaningful;
// the rest are zero.
type WatchConfig struct {
	Type    WatchKind
	Include []string
	// Exclude is an additional glob set evaluated the same way as
	// Include, subtracting matches.
	Exclude []string

	// jq
	JQQuery string

	// regex
	RegexPattern string
	RegexFlags   string

	// xpath
	XPathExpression string
	XPathNamespaces map[string]string

	// tsq
	TSQQuery    string
	TSQCapture  string
	TSQLanguage string

	// ast-grep. Pattern is either a simple string (ASTGrepRaw set,
	// ASTGrepContext/ASTGrepSelector empty) or an object pattern
	// ({context, selector}).
	ASTGrepLanguage string
	ASTGrepRaw      string
	ASTGrepContext  string
	ASTGrepSelector string
}

// IsObjectPattern reports whether the ast-grep config used the
// {context, selector} object-pattern form rather than a bare string.
func (w WatchConfig) IsObjectPattern() bool {
	return w.ASTGrepContext != "" || w.ASTGrepSelector != ""
}

func (w *WatchConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type       string        `yaml:"type"`
		Include    stringOrSlice `yaml:"include"`
		Exclude    stringOrSlice `yaml:"exclude"`
		Query      string        `yaml:"query"`
		Pattern    yaml.Node     `yaml:"pattern"`
		Flags      string        `yaml:"flags"`
		Expression string        `yaml:"expression"`
		Namespaces map[string]string `yaml:"namespaces"`
		Capture    string        `yaml:"capture"`
		Language   string        `yaml:"language"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}

	w.Type = WatchKind(raw.Type)
	w.Include = []string(raw.Include)
	w.Exclude = []string(raw.Exclude)

	switch w.Type {
	case WatchJQ:
		w.JQQuery = raw.Query
	case WatchRegex:
		if err := decodeOptionalString(&raw.Pattern, &w.RegexPattern); err != nil {
			return fmt.Errorf("regex watch: %w", err)
		}
		w.RegexFlags = raw.Flags
	case WatchXPath:
		w.XPathExpression = raw.Expression
		w.XPathNamespaces = raw.Namespaces
	case WatchTSQ:
		w.TSQQuery = raw.Query
		w.TSQCapture = raw.Capture
		w.TSQLanguage = raw.Language
	case WatchASTGrep:
		w.ASTGrepLanguage = raw.Language
		switch raw.Pattern.Kind {
		case 0:
			// absent
		case yaml.ScalarNode:
			if err := raw.Pattern.Decode(&w.ASTGrepRaw); err != nil {
				return fmt.Errorf("ast-grep watch: decoding pattern: %w", err)
			}
		case yaml.MappingNode:
			var obj struct {
				Context  string `yaml:"context"`
				Selector string `yaml:"selector"`
			}
			if err := raw.Pattern.Decode(&obj); err != nil {
				return fmt.Errorf("ast-grep watch: decoding pattern: %w", err)
			}
			w.ASTGrepContext = obj.Context
			w.ASTGrepSelector = obj.Selector
		default:
			return fmt.Errorf("ast-grep watch: pattern must be a string or {context, selector}")
		}
	default:
		return fmt.Errorf("unknown watch type %q", raw.Type)
	}
	return nil
}

func decodeOptionalString(node *yaml.Node, dst *string) error {
	if node.Kind == 0 {
		return nil
	}
	return node.Decode(dst)
}

// stringOrSlice decodes either a single scalar string or a YAML sequence
// of strings, matching the "one glob or a set of globs" include shape.
type stringOrSlice []string

func (s *stringOrSlice) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string
		if err := node.Decode(&str); err != nil {
			return err
		}
		*s = []string{str}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
	case 0:
		*s = nil
	default:
		return fmt.Errorf("expected a string or a list of strings")
	}
	return nil
}

// ReportKind is the tagged-union discriminator for report configurations.
// Currently only `handlebars` exists.
type ReportKind string

const ReportHandlebars ReportKind = "handlebars"

// ReportConfig is the report configuration.
type ReportConfig struct {
	Type     ReportKind
	Template string
}

func (r *ReportConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Type     string `yaml:"type"`
		Template string `yaml:"template"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Type = ReportKind(raw.Type)
	r.Template = raw.Template
	if r.Type != ReportHandlebars {
		return fmt.Errorf("unsupported report type %q", raw.Type)
	}
	return nil
}

// NotifyValue is a notify field value: either a single string or a list
// of strings, validated eagerly at load time rather than left to fail at
// render time.
type NotifyValue struct {
	Single string
	Multi  []string
}

func (n NotifyValue) Strings() []string {
	if n.Multi != nil {
		return n.Multi
	}
	return []string{n.Single}
}

func (n *NotifyValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&n.Single)
	case yaml.SequenceNode:
		return node.Decode(&n.Multi)
	default:
		return fmt.Errorf("notify value must be a string or a list of strings")
	}
}

package config

import (
	"testing"

	"gopkg.in/yaml.v3"
)

func unmarshalYAMLString(data []byte, out interface{}) error {
	return yaml.Unmarshal(data, out)
}

func TestParseDeclaredOrderPreserved(t *testing.T) {
	data := []byte(`
concerns:
  zebra:
    signals: []
  apple:
    signals: []
  mango:
    signals: []
defined:
  watches: {}
  reports: {}
  signals: {}
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"zebra", "apple", "mango"}
	if len(cfg.Concerns) != len(want) {
		t.Fatalf("got %d concerns, want %d", len(cfg.Concerns), len(want))
	}
	for i, name := range want {
		if cfg.Concerns[i].Name != name {
			t.Errorf("concerns[%d] = %q, want %q (declared order not preserved)", i, cfg.Concerns[i].Name, name)
		}
	}
}

func TestParseConcernsMustBeMapping(t *testing.T) {
	_, err := Parse([]byte("concerns: [1, 2, 3]\n"))
	if err == nil {
		t.Fatal("expected an error for a non-mapping concerns block")
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		kind    RefKind
		ref     string
		wantErr string
	}{
		{name: "watches", in: "#defined/watches/foo", kind: RefWatches, ref: "foo"},
		{name: "reports", in: "#defined/reports/bar", kind: RefReports, ref: "bar"},
		{name: "signals", in: "#defined/signals/baz", kind: RefSignals, ref: "baz"},
		{name: "missing prefix", in: "watches/foo", wantErr: "Invalid reference format"},
		{name: "unknown kind", in: "#defined/widgets/foo", wantErr: "Invalid reference format"},
		{name: "no name", in: "#defined/watches/", wantErr: "Invalid reference format"},
		{name: "too many segments", in: "#defined/watches/foo/bar", wantErr: "Invalid reference format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, name, err := ParseRef(tt.in)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("ParseRef(%q) error = %v, want %q", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRef(%q): %v", tt.in, err)
			}
			if kind != tt.kind || name != tt.ref {
				t.Errorf("ParseRef(%q) = (%v, %q), want (%v, %q)", tt.in, kind, name, tt.kind, tt.ref)
			}
		})
	}
}

func TestResolveWatchUseReference(t *testing.T) {
	cfg := &Config{
		Defined: Defined{
			Watches: map[string]WatchConfig{
				"changed-version": {Type: WatchJQ, JQQuery: ".version"},
			},
		},
	}
	ref := WatchRef{Use: "#defined/watches/changed-version"}
	wc, err := cfg.ResolveWatch(ref)
	if err != nil {
		t.Fatalf("ResolveWatch: %v", err)
	}
	if wc.Type != WatchJQ || wc.JQQuery != ".version" {
		t.Errorf("ResolveWatch returned %+v", wc)
	}
}

func TestResolveWatchInline(t *testing.T) {
	inline := &WatchConfig{Type: WatchRegex, RegexPattern: "TODO"}
	ref := WatchRef{Inline: inline}
	cfg := &Config{}
	wc, err := cfg.ResolveWatch(ref)
	if err != nil {
		t.Fatalf("ResolveWatch: %v", err)
	}
	if wc != inline {
		t.Error("ResolveWatch did not return the inline config")
	}
}

func TestResolveWatchWrongKind(t *testing.T) {
	cfg := &Config{Defined: Defined{Reports: map[string]ReportConfig{"r": {Type: ReportHandlebars}}}}
	ref := WatchRef{Use: "#defined/reports/r"}
	_, err := cfg.ResolveWatch(ref)
	if err == nil || err.Error() != "Expected a watches reference, got reports" {
		t.Fatalf("ResolveWatch wrong kind error = %v", err)
	}
}

func TestResolveWatchNotFound(t *testing.T) {
	cfg := &Config{Defined: Defined{Watches: map[string]WatchConfig{}}}
	ref := WatchRef{Use: "#defined/watches/missing"}
	_, err := cfg.ResolveWatch(ref)
	if err == nil || err.Error() != "watches 'missing' not found" {
		t.Fatalf("ResolveWatch not-found error = %v", err)
	}
}

func TestUnmarshalWatchConfigKinds(t *testing.T) {
	data := []byte(`
type: jq
include: "**/*.json"
query: .version
`)
	var wc WatchConfig
	if err := unmarshalYAMLString(data, &wc); err != nil {
		t.Fatalf("unmarshal jq watch: %v", err)
	}
	if wc.Type != WatchJQ || wc.JQQuery != ".version" || len(wc.Include) != 1 {
		t.Errorf("got %+v", wc)
	}

	data = []byte(`
type: tsq
include: ["**/*.js"]
query: "(function_declaration name: (identifier) @name)"
capture: name
`)
	if err := unmarshalYAMLString(data, &wc); err != nil {
		t.Fatalf("unmarshal tsq watch: %v", err)
	}
	if wc.Type != WatchTSQ || wc.TSQQuery == "" || wc.TSQCapture != "name" {
		t.Errorf("got %+v", wc)
	}

	data = []byte(`
type: ast-grep
include: "**/*.go"
pattern:
  context: "func $NAME() { $$$BODY }"
  selector: function_declaration
`)
	if err := unmarshalYAMLString(data, &wc); err != nil {
		t.Fatalf("unmarshal ast-grep watch: %v", err)
	}
	if !wc.IsObjectPattern() || wc.ASTGrepSelector != "function_declaration" {
		t.Errorf("got %+v", wc)
	}
}

func TestNotifyValueStrings(t *testing.T) {
	var single NotifyValue
	if err := unmarshalYAMLString([]byte("slack-eng"), &single); err != nil {
		t.Fatalf("unmarshal scalar notify: %v", err)
	}
	if got := single.Strings(); len(got) != 1 || got[0] != "slack-eng" {
		t.Errorf("Strings() = %v", got)
	}

	var multi NotifyValue
	if err := unmarshalYAMLString([]byte("[slack-eng, slack-sec]"), &multi); err != nil {
		t.Fatalf("unmarshal sequence notify: %v", err)
	}
	if got := multi.Strings(); len(got) != 2 {
		t.Errorf("Strings() = %v", got)
	}
}

func TestValidateCatchesUnresolvedSignal(t *testing.T) {
	cfg := &Config{
		Concerns: []Concern{
			{Name: "versions", Signals: []SignalRef{{Use: "#defined/signals/missing"}}},
		},
	}
	errs := Validate(cfg)
	if len(errs) == 0 {
		t.Fatal("expected Validate to report the unresolved signal reference")
	}
}

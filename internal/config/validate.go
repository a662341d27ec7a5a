package config

import "fmt"

// Validate checks structural well-formedness and reference resolvability,
// returning every error found rather than stopping at the first.
//
// Loading itself stays lazy about reference resolution; Validate is the
// opt-in eager check a host (e.g. `signalwatch validate`) can run to
// confirm every reference resolves before a run starts.
func Validate(cfg *Config) []error {
	var errs []error

	if len(cfg.Concerns) == 0 {
		errs = append(errs, fmt.Errorf("at least one concern is required"))
	}

	names := make(map[string]bool)
	for i, c := range cfg.Concerns {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("concerns[%d]: name is required", i))
		} else if names[c.Name] {
			errs = append(errs, fmt.Errorf("concerns[%d]: duplicate name %q", i, c.Name))
		} else {
			names[c.Name] = true
		}

		for j, sigRef := range c.Signals {
			sig, err := cfg.ResolveSignal(sigRef)
			if err != nil {
				errs = append(errs, fmt.Errorf("concern %q signal[%d]: %w", c.Name, j, err))
				continue
			}
			if _, err := cfg.ResolveWatch(sig.Watch); err != nil {
				errs = append(errs, fmt.Errorf("concern %q signal[%d]: %w", c.Name, j, err))
			}
			if _, err := cfg.ResolveReport(sig.Report); err != nil {
				errs = append(errs, fmt.Errorf("concern %q signal[%d]: %w", c.Name, j, err))
			}
		}
	}

	errs = append(errs, validateDefinedWatchKinds(cfg)...)

	return errs
}

// validateDefinedWatchKinds checks that every watch in the `defined` block
// (referenced or not — an unreferenced defined entry is still required to
// be well-formed) names a supported kind.
func validateDefinedWatchKinds(cfg *Config) []error {
	var errs []error
	for name, wc := range cfg.Defined.Watches {
		switch wc.Type {
		case WatchJQ, WatchRegex, WatchXPath, WatchTSQ, WatchASTGrep:
		default:
			errs = append(errs, fmt.Errorf("defined watch %q: unknown type %q", name, wc.Type))
		}
	}
	for name, rc := range cfg.Defined.Reports {
		if rc.Type != ReportHandlebars {
			errs = append(errs, fmt.Errorf("defined report %q: unsupported type %q", name, rc.Type))
		}
	}
	return errs
}

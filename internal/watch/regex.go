package watch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/re-cinq/signalwatch/internal/config"
)

// regexExtractor implements the regex watch.
//
// Effective flags always include global and multiline; global is Go's
// default FindAll behavior, multiline is the inline (?m) flag. User flags
// add case-insensitivity ("i" -> (?i)) and dot-all ("s" -> (?s)).
//
// Overlap/zero-length semantics: resolved as non-overlapping left-to-right
// matches, skipping zero-length matches abutting the previous one — which
// is exactly Go's documented FindAll behavior ("empty matches abutting a
// preceding match are ignored"), so no extra bookkeeping is needed here.
type regexExtractor struct {
	re    *regexp.Regexp
	names []string
}

func newRegexExtractor(cfg config.WatchConfig) (Extractor, error) {
	re, err := regexp.Compile(buildRegexPattern(cfg.RegexPattern, cfg.RegexFlags))
	if err != nil {
		return nil, fmt.Errorf("compiling regex: %w", err)
	}
	return &regexExtractor{re: re, names: re.SubexpNames()}, nil
}

func buildRegexPattern(pattern, flags string) string {
	var inline strings.Builder
	inline.WriteByte('m')
	if strings.Contains(flags, "i") {
		inline.WriteByte('i')
	}
	if strings.Contains(flags, "s") {
		inline.WriteByte('s')
	}
	return "(?" + inline.String() + ")" + pattern
}

func (e *regexExtractor) Extract(_ context.Context, content *string, _ string) (artifact, error) {
	if content == nil {
		return artifact{}, nil
	}
	matches := e.re.FindAllStringSubmatch(*content, -1)
	if matches == nil {
		return artifact{}, nil
	}

	texts := make([]string, 0, len(matches))
	var contexts []ContextEntry
	for _, m := range matches {
		texts = append(texts, m[0])
		entry := ContextEntry{}
		for i, name := range e.names {
			if i == 0 || name == "" {
				continue
			}
			entry[name] = m[i]
		}
		if len(entry) > 0 {
			contexts = append(contexts, entry)
		}
	}
	return artifact{text: strings.Join(texts, "\n"), context: contexts}, nil
}

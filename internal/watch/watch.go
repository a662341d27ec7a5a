// Package watch implements the five extractor kinds unified behind one
// contract: apply(file_versions, watch_config, file_path) -> FilterResult
// or absence. Each kind's extractor lives in its own file; the shared
// pre/post-processing (absence checks, diffing, line-range derivation,
// context merge) lives here, run once for every kind.
package watch

import (
	"context"
	"fmt"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/re-cinq/signalwatch/internal/config"
)

// FileVersions is the (old, new) content pair for one file change. Either
// side may be nil (add/delete); both nil is always a no-op.
type FileVersions struct {
	Old *string
	New *string
}

// ContextEntry is one symbolic-context map (capture group values, enclosing
// node kinds).
type ContextEntry map[string]string

// LineRange is the filtered artifact's first-hunk new-side range.
//
// This is artifact-local, not a source-file line range: a watch's
// extracted text is frequently a subset or transformation of the source,
// so End-Start+1 describes lines within the extracted artifact, not
// within the file being governed. Consumers that want to highlight source
// lines must not treat this as one.
type LineRange struct {
	Start int
	End   int
}

// FilterResult is a watch's non-absent output.
type FilterResult struct {
	DiffText  string
	Left      string
	Right     string
	LineRange *LineRange
	Context   []ContextEntry
}

// artifact is one side's extraction output.
type artifact struct {
	text    string
	context []ContextEntry
}

// Extractor is the per-kind contract: produce an artifact from one side's
// content. filePath is available for kinds that derive language from a
// file extension (tsq).
type Extractor interface {
	Extract(ctx context.Context, content *string, filePath string) (artifact, error)
}

// New builds the Extractor for a watch configuration's kind. The switch
// is exhaustive over config.WatchKind by construction: watch kinds are a
// closed tagged union, not open to duck-typed extension.
func New(cfg config.WatchConfig) (Extractor, error) {
	switch cfg.Type {
	case config.WatchJQ:
		return newJQExtractor(cfg)
	case config.WatchRegex:
		return newRegexExtractor(cfg)
	case config.WatchXPath:
		return newXPathExtractor(cfg)
	case config.WatchTSQ:
		return newTSQExtractor(cfg)
	case config.WatchASTGrep:
		return newASTGrepExtractor(cfg)
	default:
		return nil, fmt.Errorf("unknown watch type %q", cfg.Type)
	}
}

// MatchesInclude reports whether filePath satisfies the watch's include
// globs (minimatch semantics via doublestar) and fails every exclude
// glob. No include globs means no match.
func MatchesInclude(cfg config.WatchConfig, filePath string) bool {
	matched := false
	for _, pattern := range cfg.Include {
		if ok, _ := doublestar.Match(pattern, filePath); ok {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, pattern := range cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, filePath); ok {
			return false
		}
	}
	return true
}

// Apply is the common watch contract: it runs extraction on both sides,
// diffs them, and returns a FilterResult, or nil for absence.
func Apply(ctx context.Context, versions FileVersions, cfg config.WatchConfig, filePath string) (*FilterResult, error) {
	if versions.Old == nil && versions.New == nil {
		return nil, nil
	}

	extractor, err := New(cfg)
	if err != nil {
		return nil, err
	}

	var left, right artifact
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := extractor.Extract(gctx, versions.Old, filePath)
		if err != nil {
			return fmt.Errorf("extracting old version: %w", err)
		}
		left = a
		return nil
	})
	g.Go(func() error {
		a, err := extractor.Extract(gctx, versions.New, filePath)
		if err != nil {
			return fmt.Errorf("extracting new version: %w", err)
		}
		right = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if left.text == right.text {
		return nil, nil
	}

	diffText := unifiedDiff(left.text, right.text)
	result := &FilterResult{
		DiffText: diffText,
		Left:     left.text,
		Right:    right.text,
		Context:  mergeContexts(left.context, right.context),
	}

	if cfg.Type != config.WatchJQ {
		if lr := firstHunkLineRange(diffText); lr != nil {
			result.LineRange = lr
		}
	}

	return result, nil
}

// mergeContexts concatenates left/right context entries, deduplicated by
// structural equality (set semantics over key/value maps).
func mergeContexts(left, right []ContextEntry) []ContextEntry {
	var merged []ContextEntry
	seen := make(map[string]bool)
	add := func(entries []ContextEntry) {
		for _, e := range entries {
			if len(e) == 0 {
				continue
			}
			key := contextKey(e)
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, e)
		}
	}
	add(left)
	add(right)
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func contextKey(e ContextEntry) string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + e[k] + "\x00"
	}
	return key
}

package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/re-cinq/signalwatch/internal/config"
)

// jqExtractor implements the jq watch: run a jq query against each
// version's content as JSON, producing textual output. Run in-process via
// gojq rather than shelling out to a jq binary per file.
type jqExtractor struct {
	code *gojq.Code
}

func newJQExtractor(cfg config.WatchConfig) (Extractor, error) {
	query, err := gojq.Parse(cfg.JQQuery)
	if err != nil {
		return nil, fmt.Errorf("parsing jq query: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compiling jq query: %w", err)
	}
	return &jqExtractor{code: code}, nil
}

func (e *jqExtractor) Extract(ctx context.Context, content *string, _ string) (artifact, error) {
	if content == nil || strings.TrimSpace(*content) == "" {
		return artifact{}, nil
	}

	var input interface{}
	if err := json.Unmarshal([]byte(*content), &input); err != nil {
		// Parse failures collapse to empty extraction.
		return artifact{}, nil
	}

	iter := e.code.RunWithContext(ctx, input)
	var lines []string
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			if err != nil {
				// A runtime jq error (e.g. type mismatch) collapses to
				// empty extraction rather than failing the signal.
				return artifact{}, nil
			}
			continue
		}
		text, err := jqOutputText(v)
		if err != nil {
			continue
		}
		lines = append(lines, text)
	}
	return artifact{text: strings.Join(lines, "\n")}, nil
}

// jqOutputText renders one jq result value the way a jq `-r`-less
// invocation would: JSON-encoded, so string results keep their quotes
// (`.version` on "1.0.0" yields `"1.0.0"`).
func jqOutputText(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/re-cinq/signalwatch/internal/config"
)

// extLanguages derives a grammar name from a file extension when a tsq
// watch doesn't name one explicitly.
var extLanguages = map[string]string{
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".ts":  "typescript",
	".tsx": "tsx",
	".py":  "python",
	".go":  "go",
	".java": "java",
	".rs":  "rust",
	".c":   "c",
	".h":   "c",
	".cpp": "cpp",
	".cxx": "cpp",
	".hpp": "cpp",
}

var languageFactories = map[string]func() *sitter.Language{
	"javascript": javascript.GetLanguage,
	"typescript": typescript.GetLanguage,
	"tsx":        tsx.GetLanguage,
	"python":     python.GetLanguage,
	"go":         golang.GetLanguage,
	"java":       java.GetLanguage,
	"rust":       rust.GetLanguage,
	"c":          c.GetLanguage,
	"cpp":        cpp.GetLanguage,
}

// languageCache and queryCache hold process-wide, lazily-built grammars and
// compiled queries, keyed by language name and (language, query)
// respectively, so a tsq watch compiles once per distinct language/query
// pair rather than on every extraction.
var (
	languageCacheMu sync.Mutex
	languageCache   = map[string]*sitter.Language{}

	queryCacheMu sync.Mutex
	queryCache   = map[string]*sitter.Query{}
)

func resolveLanguage(name string) (*sitter.Language, error) {
	languageCacheMu.Lock()
	defer languageCacheMu.Unlock()
	if lang, ok := languageCache[name]; ok {
		return lang, nil
	}
	factory, ok := languageFactories[name]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", name)
	}
	lang := factory()
	languageCache[name] = lang
	return lang, nil
}

func compiledQuery(langName, query string, lang *sitter.Language) (*sitter.Query, error) {
	key := langName + "\x00" + query
	queryCacheMu.Lock()
	defer queryCacheMu.Unlock()
	if q, ok := queryCache[key]; ok {
		return q, nil
	}
	q, err := sitter.NewQuery([]byte(query), lang)
	if err != nil {
		return nil, fmt.Errorf("compiling tsq query: %w", err)
	}
	queryCache[key] = q
	return q, nil
}

// tsqExtractor implements the tsq watch: a tree-sitter query evaluated
// against each version's content, parsed in the resolved language.
type tsqExtractor struct {
	query       string
	captureName string
	language    string
}

func newTSQExtractor(cfg config.WatchConfig) (Extractor, error) {
	if strings.TrimSpace(cfg.TSQQuery) == "" {
		return nil, fmt.Errorf("tsq watch requires a query")
	}
	return &tsqExtractor{
		query:       cfg.TSQQuery,
		captureName: cfg.TSQCapture,
		language:    cfg.TSQLanguage,
	}, nil
}

func (e *tsqExtractor) Extract(ctx context.Context, content *string, filePath string) (artifact, error) {
	if content == nil || strings.TrimSpace(*content) == "" {
		return artifact{}, nil
	}

	langName := e.language
	if langName == "" {
		ext := filepath.Ext(filePath)
		if ext == "" {
			return artifact{}, fmt.Errorf("tsq watch requires a file extension to resolve a language")
		}
		name, ok := extLanguages[ext]
		if !ok {
			return artifact{}, fmt.Errorf("unsupported language for extension %q", ext)
		}
		langName = name
	}

	lang, err := resolveLanguage(langName)
	if err != nil {
		return artifact{}, err
	}
	q, err := compiledQuery(langName, e.query, lang)
	if err != nil {
		return artifact{}, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	src := []byte(*content)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		// Unparseable content collapses to empty extraction.
		return artifact{}, nil
	}

	cursor := sitter.NewQueryCursor()
	cursor.Exec(q, tree.RootNode())

	var (
		texts      []string
		contexts   []ContextEntry
		seenNodes  = map[[2]uint32]bool{}
	)
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}

		var target []sitter.QueryCapture
		if e.captureName != "" {
			for _, c := range match.Captures {
				if q.CaptureNameForId(c.Index) == e.captureName {
					target = append(target, c)
				}
			}
		} else {
			target = maximalCaptures(match.Captures)
		}

		targetKeys := make(map[[2]uint32]bool, len(target))
		for _, c := range target {
			key := nodeSpan(c.Node)
			targetKeys[key] = true
			if seenNodes[key] {
				continue
			}
			seenNodes[key] = true
			texts = append(texts, c.Node.Content(src))
		}

		entry := ContextEntry{}
		for _, c := range match.Captures {
			if targetKeys[nodeSpan(c.Node)] {
				continue
			}
			entry[q.CaptureNameForId(c.Index)] = c.Node.Content(src)
		}
		if len(entry) > 0 {
			contexts = append(contexts, entry)
		}
	}

	return artifact{text: strings.Join(texts, "\n"), context: contexts}, nil
}

func nodeSpan(n *sitter.Node) [2]uint32 {
	return [2]uint32{n.StartByte(), n.EndByte()}
}

// maximalCaptures returns the captures of one match that aren't spatially
// contained by another capture of the same match — the default used when
// a tsq watch names no explicit capture.
func maximalCaptures(caps []sitter.QueryCapture) []sitter.QueryCapture {
	var result []sitter.QueryCapture
	for i, c := range caps {
		contained := false
		for j, d := range caps {
			if i == j {
				continue
			}
			if strictlyContains(d.Node, c.Node) {
				contained = true
				break
			}
		}
		if !contained {
			result = append(result, c)
		}
	}
	return result
}

func strictlyContains(outer, inner *sitter.Node) bool {
	if outer.StartByte() == inner.StartByte() && outer.EndByte() == inner.EndByte() {
		return false
	}
	return outer.StartByte() <= inner.StartByte() && outer.EndByte() >= inner.EndByte()
}

package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/re-cinq/signalwatch/internal/config"
)

// astGrepExtractor implements the ast-grep watch: structural pattern
// matching over a tree-sitter parse with metavariable capture ($NAME binds
// one node, $$$NAME binds a run of sibling nodes).
//
// No Go ast-grep binding exists in the retrieval pack (see DESIGN.md), so
// this builds the matcher directly on the same github.com/smacker/go-tree-sitter
// infrastructure the tsq watch uses: the pattern itself is parsed by the
// target's grammar after its metavariables are substituted for placeholder
// identifiers, then matched structurally node-by-node against every node of
// the target's tree.
type astGrepExtractor struct {
	language string
	raw      string
	context  string
	selector string
}

func newASTGrepExtractor(cfg config.WatchConfig) (Extractor, error) {
	if cfg.ASTGrepRaw == "" && cfg.ASTGrepContext == "" {
		return nil, fmt.Errorf("ast-grep watch requires a pattern")
	}
	return &astGrepExtractor{
		language: cfg.ASTGrepLanguage,
		raw:      cfg.ASTGrepRaw,
		context:  cfg.ASTGrepContext,
		selector: cfg.ASTGrepSelector,
	}, nil
}

func (e *astGrepExtractor) Extract(ctx context.Context, content *string, filePath string) (artifact, error) {
	if content == nil || strings.TrimSpace(*content) == "" {
		return artifact{}, nil
	}

	langName := e.language
	if langName == "" {
		ext := filepath.Ext(filePath)
		name, ok := extLanguages[ext]
		if !ok {
			return artifact{}, fmt.Errorf("ast-grep watch requires a language or a recognized file extension")
		}
		langName = name
	}
	lang, err := resolveLanguage(langName)
	if err != nil {
		return artifact{}, err
	}

	patternSrc, placeholders := substituteMetavariables(e.patternSource())
	patternRoot, patternBytes, err := e.patternRoot(ctx, lang, patternSrc)
	if err != nil {
		return artifact{}, err
	}
	if patternRoot == nil {
		return artifact{}, nil
	}

	targetSrc := []byte(*content)
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, targetSrc)
	if err != nil {
		return artifact{}, nil
	}

	var texts []string
	var contexts []ContextEntry
	seen := map[[2]uint32]bool{}
	walk(tree.RootNode(), func(n *sitter.Node) {
		bindings := map[string]string{}
		if !nodesMatch(patternRoot, n, patternBytes, targetSrc, placeholders, bindings) {
			return
		}
		key := nodeSpan(n)
		if seen[key] {
			return
		}
		seen[key] = true
		texts = append(texts, n.Content(targetSrc))
		if len(bindings) > 0 {
			entry := ContextEntry{}
			for k, v := range bindings {
				entry[k] = v
			}
			contexts = append(contexts, entry)
		}
	})

	return artifact{text: strings.Join(texts, "\n"), context: contexts}, nil
}

func (e *astGrepExtractor) patternSource() string {
	if e.context != "" {
		return e.context
	}
	return e.raw
}

// patternRoot parses the (metavariable-substituted) pattern source and
// returns the node to match against: the named selector's first node for
// the object {context, selector} form, or — for a raw string pattern,
// which is rarely a whole valid source file on its own — the narrowest
// node that still spans the entire pattern, skipping past the
// source_file/ERROR wrapping a bare expression or statement parses into.
func (e *astGrepExtractor) patternRoot(ctx context.Context, lang *sitter.Language, patternSrc string) (*sitter.Node, []byte, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	patternBytes := []byte(patternSrc)
	tree, err := parser.ParseCtx(ctx, nil, patternBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing ast-grep pattern: %w", err)
	}
	if e.selector == "" {
		return narrowestFullSpanNode(tree.RootNode(), uint32(len(patternBytes))), patternBytes, nil
	}
	node := findFirstOfType(tree.RootNode(), e.selector)
	if node == nil {
		return nil, nil, fmt.Errorf("ast-grep selector %q not found in context", e.selector)
	}
	return node, patternBytes, nil
}

// narrowestFullSpanNode descends through children that cover the node's
// entire byte range, stopping at the most specific node that still spans
// [0, total) — the real pattern construct, with any outer wrapping (a
// source_file, or an ERROR node from parsing a bare expression) peeled
// away.
func narrowestFullSpanNode(n *sitter.Node, total uint32) *sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c.StartByte() == 0 && c.EndByte() == total {
			return narrowestFullSpanNode(c, total)
		}
	}
	return n
}

func findFirstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n == nil {
		return nil
	}
	if n.Type() == typ {
		return n
	}
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		if found := findFirstOfType(n.NamedChild(i), typ); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	if n == nil {
		return
	}
	visit(n)
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		walk(n.NamedChild(i), visit)
	}
}

type metaKind int

const (
	metaSingle metaKind = iota
	metaRest
)

type metaInfo struct {
	name string
	kind metaKind
}

var (
	restMetaRe   = regexp.MustCompile(`\$\$\$([A-Za-z_][A-Za-z0-9_]*)`)
	singleMetaRe = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// substituteMetavariables replaces $NAME / $$$NAME tokens with placeholder
// identifiers that parse validly in any grammar, remembering which
// placeholder stands for which metavariable and kind.
func substituteMetavariables(pattern string) (string, map[string]metaInfo) {
	placeholders := map[string]metaInfo{}
	counter := 0

	out := restMetaRe.ReplaceAllStringFunc(pattern, func(m string) string {
		name := restMetaRe.FindStringSubmatch(m)[1]
		ph := fmt.Sprintf("astgrepmvrest%d", counter)
		counter++
		placeholders[ph] = metaInfo{name: name, kind: metaRest}
		return ph
	})
	out = singleMetaRe.ReplaceAllStringFunc(out, func(m string) string {
		name := singleMetaRe.FindStringSubmatch(m)[1]
		ph := fmt.Sprintf("astgrepmvsingle%d", counter)
		counter++
		placeholders[ph] = metaInfo{name: name, kind: metaSingle}
		return ph
	})
	return out, placeholders
}

// nodesMatch compares a pattern node against a target node: a single
// metavariable leaf matches any one node and binds its text; otherwise node
// types must agree and named children must match structurally (with a
// single $$$NAME child absorbing a run of target siblings).
func nodesMatch(patternNode, targetNode *sitter.Node, patternSrc, targetSrc []byte, placeholders map[string]metaInfo, bindings map[string]string) bool {
	if patternNode == nil || targetNode == nil {
		return patternNode == targetNode
	}

	text := patternNode.Content(patternSrc)
	if info, ok := placeholders[text]; ok && info.kind == metaSingle && patternNode.NamedChildCount() == 0 {
		bindings[info.name] = targetNode.Content(targetSrc)
		return true
	}

	if patternNode.Type() != targetNode.Type() {
		return false
	}

	return matchChildren(namedChildren(patternNode), namedChildren(targetNode), patternSrc, targetSrc, placeholders, bindings)
}

func matchChildren(pChildren, tChildren []*sitter.Node, patternSrc, targetSrc []byte, placeholders map[string]metaInfo, bindings map[string]string) bool {
	pi, ti := 0, 0
	for pi < len(pChildren) {
		p := pChildren[pi]
		text := p.Content(patternSrc)
		if info, ok := placeholders[text]; ok && info.kind == metaRest {
			remaining := len(pChildren) - pi - 1
			consumeUpTo := len(tChildren) - remaining
			if consumeUpTo < ti {
				return false
			}
			var parts []string
			for ti < consumeUpTo {
				parts = append(parts, tChildren[ti].Content(targetSrc))
				ti++
			}
			bindings[info.name] = strings.Join(parts, " ")
			pi++
			continue
		}
		if ti >= len(tChildren) {
			return false
		}
		if !nodesMatch(p, tChildren[ti], patternSrc, targetSrc, placeholders, bindings) {
			return false
		}
		pi++
		ti++
	}
	return ti == len(tChildren)
}

func namedChildren(n *sitter.Node) []*sitter.Node {
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, count)
	for i := 0; i < count; i++ {
		out[i] = n.NamedChild(i)
	}
	return out
}

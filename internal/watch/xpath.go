package watch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/re-cinq/signalwatch/internal/config"
)

// xpathExtractor implements the xpath watch: parse content as XML and
// evaluate an XPath expression against it, with an optional
// namespace-prefix binding.
type xpathExtractor struct {
	expr       *xpath.Expr
	rawExpr    string
	namespaces map[string]string
}

func newXPathExtractor(cfg config.WatchConfig) (Extractor, error) {
	var (
		expr *xpath.Expr
		err  error
	)
	if len(cfg.XPathNamespaces) > 0 {
		expr, err = xpath.CompileWithNS(cfg.XPathExpression, cfg.XPathNamespaces)
	} else {
		expr, err = xpath.Compile(cfg.XPathExpression)
	}
	if err != nil {
		return nil, fmt.Errorf("compiling xpath expression: %w", err)
	}
	return &xpathExtractor{expr: expr, rawExpr: cfg.XPathExpression, namespaces: cfg.XPathNamespaces}, nil
}

func (e *xpathExtractor) Extract(_ context.Context, content *string, _ string) (artifact, error) {
	if content == nil || strings.TrimSpace(*content) == "" {
		return artifact{}, nil
	}

	doc, err := xmlquery.Parse(strings.NewReader(*content))
	if err != nil {
		// Malformed XML collapses to empty extraction.
		return artifact{}, nil
	}

	nodes := xmlquery.QuerySelectorAll(doc, e.expr)
	if len(nodes) > 0 {
		lines := make([]string, 0, len(nodes))
		for _, n := range nodes {
			lines = append(lines, strings.TrimSpace(n.OutputXML(true)))
		}
		return artifact{text: strings.Join(lines, "\n")}, nil
	}

	// Expressions such as string(...)/count(...)/boolean(...) evaluate to a
	// scalar rather than a node-set; QuerySelectorAll returns nothing for
	// those, so fall back to direct evaluation against a navigator.
	nav := xmlquery.CreateXPathNavigator(doc)
	v := e.expr.Evaluate(nav)
	return artifact{text: scalarText(v)}, nil
}

func scalarText(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

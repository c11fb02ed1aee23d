package whenclause

import (
	"log/slog"
	"strings"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// resourceSchemeKey is the context key whose operands the rewriter remaps.
const resourceSchemeKey = "resourceScheme"

// Rewriter remaps one resource-scheme token to another wherever it appears
// as the operand of a resourceScheme predicate. Expressions that do not
// mention the key, and expressions that fail to parse, are left unchanged.
type Rewriter struct {
	from string
	to   string
	log  *slog.Logger
}

// NewRewriter creates a rewriter that maps the from scheme to the to scheme.
func NewRewriter(from, to string, log *slog.Logger) *Rewriter {
	if log == nil {
		log = slog.Default()
	}
	return &Rewriter{from: from, to: to, log: log}
}

// RewriteExpression rewrites a single serialized when-expression. The input
// is returned untouched when it does not mention resourceScheme or cannot
// be parsed.
func (r *Rewriter) RewriteExpression(s string) string {
	if !strings.Contains(s, resourceSchemeKey) {
		return s
	}

	expr, err := Parse(s)
	if err != nil {
		r.log.Debug("leaving unparseable when-expression unchanged",
			"expression", s, "err", err)
		return s
	}

	if !r.rewriteNode(expr) {
		return s
	}
	return Serialize(expr)
}

// RewriteDescriptors rewrites, in place, every contribution when-expression
// of the given descriptors.
func (r *Rewriter) RewriteDescriptors(descriptors []*extension.Descriptor) {
	for _, d := range descriptors {
		c := &d.Manifest.Contributes
		for _, items := range c.Menus {
			for i := range items {
				items[i].When = r.RewriteExpression(items[i].When)
			}
		}
		for i := range c.Keybindings {
			c.Keybindings[i].When = r.RewriteExpression(c.Keybindings[i].When)
		}
		for _, views := range c.Views {
			for i := range views {
				views[i].When = r.RewriteExpression(views[i].When)
			}
		}
	}
}

// rewriteNode walks the tree and reports whether anything changed.
func (r *Rewriter) rewriteNode(e Expr) bool {
	switch n := e.(type) {
	case *Equals:
		return r.rewriteValue(n.Key, &n.Value)
	case *NotEquals:
		return r.rewriteValue(n.Key, &n.Value)
	case *In:
		return r.rewriteValue(n.Key, &n.Value)
	case *Regex:
		if n.Key != resourceSchemeKey {
			return false
		}
		rewritten := strings.ReplaceAll(n.Pattern, r.from, r.to)
		if rewritten == n.Pattern {
			return false
		}
		n.Pattern = rewritten
		return true
	case *And:
		changed := false
		for _, sub := range n.Exprs {
			if r.rewriteNode(sub) {
				changed = true
			}
		}
		return changed
	case *Or:
		changed := false
		for _, sub := range n.Exprs {
			if r.rewriteNode(sub) {
				changed = true
			}
		}
		return changed
	default:
		return false
	}
}

// rewriteValue replaces a literal operand, preserving its quoting style.
func (r *Rewriter) rewriteValue(key string, value *string) bool {
	if key != resourceSchemeKey {
		return false
	}
	bare, quote := unquote(*value)
	if bare != r.from {
		return false
	}
	*value = quote + r.to + quote
	return true
}

// unquote strips a matching pair of single or double quotes and returns the
// bare value plus the quote used (empty when unquoted).
func unquote(s string) (bare, quote string) {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == last && (first == '\'' || first == '"') {
			return s[1 : len(s)-1], string(first)
		}
	}
	return s, ""
}

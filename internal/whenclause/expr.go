package whenclause

import (
	"errors"
	"fmt"
	"strings"
)

// Expr is a node in a parsed when-expression tree. The grammar has two
// levels of connectives (|| binds weaker than &&, no grouping) over atomic
// predicates on context keys.
type Expr interface {
	isExpr()
}

// Defined tests that a context key is set and truthy.
type Defined struct{ Key string }

// Not tests that a context key is unset or falsy.
type Not struct{ Key string }

// Equals tests a context key against a literal value.
type Equals struct{ Key, Value string }

// NotEquals tests a context key against a literal value, negated.
type NotEquals struct{ Key, Value string }

// Regex tests a context key against a regular expression. Pattern keeps its
// serialized "/pattern/flags" form so round-trips are exact.
type Regex struct{ Key, Pattern string }

// In tests membership of a context key's value in another value.
type In struct{ Key, Value string }

// And is the conjunction of two or more expressions.
type And struct{ Exprs []Expr }

// Or is the disjunction of two or more expressions.
type Or struct{ Exprs []Expr }

func (*Defined) isExpr()   {}
func (*Not) isExpr()       {}
func (*Equals) isExpr()    {}
func (*NotEquals) isExpr() {}
func (*Regex) isExpr()     {}
func (*In) isExpr()        {}
func (*And) isExpr()       {}
func (*Or) isExpr()        {}

var errEmptyExpression = errors.New("empty when-expression")

// Parse parses a serialized when-expression. The serialization has no
// grouping: "a && b || c" parses as (a && b) || c.
func Parse(s string) (Expr, error) {
	orParts := strings.Split(s, "||")
	orExprs := make([]Expr, 0, len(orParts))
	for _, part := range orParts {
		e, err := parseAnd(part)
		if err != nil {
			return nil, err
		}
		orExprs = append(orExprs, e)
	}
	if len(orExprs) == 1 {
		return orExprs[0], nil
	}
	return &Or{Exprs: orExprs}, nil
}

func parseAnd(s string) (Expr, error) {
	andParts := strings.Split(s, "&&")
	andExprs := make([]Expr, 0, len(andParts))
	for _, part := range andParts {
		e, err := parseAtom(part)
		if err != nil {
			return nil, err
		}
		andExprs = append(andExprs, e)
	}
	if len(andExprs) == 1 {
		return andExprs[0], nil
	}
	return &And{Exprs: andExprs}, nil
}

func parseAtom(s string) (Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyExpression
	}

	if key, value, ok := splitOperator(s, "=~"); ok {
		if err := checkOperands(key, value); err != nil {
			return nil, err
		}
		return &Regex{Key: key, Pattern: value}, nil
	}
	if key, value, ok := splitOperator(s, "=="); ok {
		if err := checkOperands(key, value); err != nil {
			return nil, err
		}
		return &Equals{Key: key, Value: value}, nil
	}
	if key, value, ok := splitOperator(s, "!="); ok {
		if err := checkOperands(key, value); err != nil {
			return nil, err
		}
		return &NotEquals{Key: key, Value: value}, nil
	}
	if key, value, ok := splitOperator(s, " in "); ok {
		if err := checkOperands(key, value); err != nil {
			return nil, err
		}
		return &In{Key: key, Value: value}, nil
	}
	if rest, ok := strings.CutPrefix(s, "!"); ok {
		key := strings.TrimSpace(rest)
		if err := checkKey(key); err != nil {
			return nil, err
		}
		return &Not{Key: key}, nil
	}
	if err := checkKey(s); err != nil {
		return nil, err
	}
	return &Defined{Key: s}, nil
}

// splitOperator splits an atom on the first occurrence of op, trimming both
// sides. It reports false when op is absent.
func splitOperator(s, op string) (key, value string, ok bool) {
	idx := strings.Index(s, op)
	if idx < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(s[:idx])
	value = strings.TrimSpace(s[idx+len(op):])
	return key, value, true
}

// checkOperands validates a binary predicate's key and value.
func checkOperands(key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if value == "" {
		return errEmptyExpression
	}
	return nil
}

// checkKey rejects keys that could not survive a round-trip.
func checkKey(key string) error {
	if key == "" {
		return errEmptyExpression
	}
	if strings.ContainsAny(key, " \t!=~") {
		return fmt.Errorf("invalid context key %q", key)
	}
	return nil
}

// Serialize renders an expression tree back to its canonical string form.
func Serialize(e Expr) string {
	var sb strings.Builder
	serialize(&sb, e)
	return sb.String()
}

func serialize(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case *Defined:
		sb.WriteString(n.Key)
	case *Not:
		sb.WriteString("!")
		sb.WriteString(n.Key)
	case *Equals:
		sb.WriteString(n.Key + " == " + n.Value)
	case *NotEquals:
		sb.WriteString(n.Key + " != " + n.Value)
	case *Regex:
		sb.WriteString(n.Key + " =~ " + n.Pattern)
	case *In:
		sb.WriteString(n.Key + " in " + n.Value)
	case *And:
		for i, sub := range n.Exprs {
			if i > 0 {
				sb.WriteString(" && ")
			}
			serialize(sb, sub)
		}
	case *Or:
		for i, sub := range n.Exprs {
			if i > 0 {
				sb.WriteString(" || ")
			}
			serialize(sb, sub)
		}
	}
}

// Package cfilter implements content-filtered topics:
// a boolean expression of the shape `field op literal` chains joined by
// `and`/`or`, evaluated against a sample's decoded fields before delivery,
// grounded on the shapes-demo predicate filtering
// the shapes demo popularized and RTPS §8.2's Read/Take
// contract, which this package composes rather than reimplements.
package cfilter

import (
	"strconv"
	"strings"
)

// Op is the comparison a Predicate applies.
type Op int

const (
	OpLT Op = iota
	OpLE
	OpGT
	OpGE
	OpEQ
	OpNE
)

// Predicate is one `field op literal` clause, e.g. `x > 50`.
type Predicate struct {
	Field   string
	Op      Op
	Literal float64
}

func (p Predicate) eval(fields map[string]float64) bool {
	v, ok := fields[p.Field]
	if !ok {
		return false
	}
	switch p.Op {
	case OpLT:
		return v < p.Literal
	case OpLE:
		return v <= p.Literal
	case OpGT:
		return v > p.Literal
	case OpGE:
		return v >= p.Literal
	case OpEQ:
		return v == p.Literal
	case OpNE:
		return v != p.Literal
	default:
		return false
	}
}

// Conjunct is an `and`-joined run of Predicates; Expression is an
// `or`-joined list of Conjuncts. This is the exact two-level boolean shape
// a shapes-style predicate needs
// ("x > 50 and x < 100 and y > 50 and y < 100"); no parenthesized grammar
// is built since shapes-style predicates never need one.
type Conjunct []Predicate

type Expression []Conjunct

// Eval reports whether fields satisfies the expression: true if any
// Conjunct has every one of its Predicates hold.
func (e Expression) Eval(fields map[string]float64) bool {
	for _, conj := range e {
		all := true
		for _, p := range conj {
			if !p.eval(fields) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// opTokens is checked longest-first so "<=" isn't mis-split at its
// leading "<".
var opTokens = []struct {
	token string
	op    Op
}{
	{"<=", OpLE},
	{">=", OpGE},
	{"!=", OpNE},
	{"<", OpLT},
	{">", OpGT},
	{"=", OpEQ},
}

// Parse compiles a textual content-filter expression: `and`-chained
// `field op literal` clauses, optionally `or`-chained into further such
// runs.
func Parse(expr string) (Expression, error) {
	var out Expression
	for _, orPart := range strings.Split(expr, " or ") {
		var conj Conjunct
		for _, clause := range strings.Split(orPart, " and ") {
			p, err := parsePredicate(strings.TrimSpace(clause))
			if err != nil {
				return nil, err
			}
			conj = append(conj, p)
		}
		out = append(out, conj)
	}
	return out, nil
}

func parsePredicate(clause string) (Predicate, error) {
	for _, o := range opTokens {
		idx := strings.Index(clause, o.token)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		litStr := strings.TrimSpace(clause[idx+len(o.token):])
		if field == "" {
			return Predicate{}, errMissingField(clause)
		}
		lit, err := strconv.ParseFloat(litStr, 64)
		if err != nil {
			return Predicate{}, errBadLiteral(litStr, clause, err)
		}
		return Predicate{Field: field, Op: o.op, Literal: lit}, nil
	}
	return Predicate{}, errNoOperator(clause)
}

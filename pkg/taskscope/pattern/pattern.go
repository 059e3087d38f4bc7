// Package pattern compiles routing-key filter expressions into predicates.
//
// A filter expression is one or more patterns separated by whitespace; a
// routing key matches the filter if it matches any of them. Each pattern is
// a dot-delimited token list using topic-exchange wildcard semantics:
//   - "*" matches exactly one token
//   - "#" matches zero or more consecutive tokens
//   - any other token matches literally, case-sensitive
//
// Examples:
//
//	dispatch.# email.#   matches keys starting with "dispatch" or "email"
//	dispatch.#.123456.#  matches "123456" at any position after "dispatch"
//	#.123456.#           matches "123456" anywhere
package pattern

import "strings"

// Delimiter separates tokens in patterns and routing keys.
const Delimiter = "."

const (
	tokenOne  = "*"
	tokenMany = "#"
)

// Filter is a compiled filter expression. A Filter is immutable and safe
// for concurrent use.
type Filter struct {
	expression   string
	alternatives [][]string
}

// Compile parses a filter expression into a Filter. It never fails: the
// token grammar has no invalid forms, and an empty or whitespace-only
// expression yields a filter that matches nothing.
func Compile(expression string) *Filter {
	fields := strings.Fields(expression)
	alternatives := make([][]string, 0, len(fields))
	for _, f := range fields {
		alternatives = append(alternatives, strings.Split(f, Delimiter))
	}
	return &Filter{expression: expression, alternatives: alternatives}
}

// Matches reports whether the routing key is selected by any of the
// filter's alternatives.
func (f *Filter) Matches(routingKey string) bool {
	if len(f.alternatives) == 0 {
		return false
	}
	key := strings.Split(routingKey, Delimiter)
	for _, alt := range f.alternatives {
		if matchTokens(alt, key) {
			return true
		}
	}
	return false
}

// Empty reports whether the filter has no alternatives and so matches
// nothing.
func (f *Filter) Empty() bool {
	return len(f.alternatives) == 0
}

// Expression returns the original filter expression.
func (f *Filter) Expression() string {
	return f.expression
}

// matchTokens aligns pattern tokens against key tokens. "#" absorbs zero or
// more key tokens but must still let the rest of the pattern align with the
// remaining key.
func matchTokens(pat, key []string) bool {
	if len(pat) == 0 {
		return len(key) == 0
	}
	switch pat[0] {
	case tokenMany:
		for skip := 0; skip <= len(key); skip++ {
			if matchTokens(pat[1:], key[skip:]) {
				return true
			}
		}
		return false
	case tokenOne:
		return len(key) > 0 && matchTokens(pat[1:], key[1:])
	default:
		return len(key) > 0 && key[0] == pat[0] && matchTokens(pat[1:], key[1:])
	}
}

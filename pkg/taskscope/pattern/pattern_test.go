package pattern_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskscope/taskscope/pkg/taskscope/pattern"
)

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		routingKey string
		want       bool
	}{
		{"exact literal", "orders.create", "orders.create", true},
		{"literal mismatch", "orders.create", "orders.delete", false},
		{"literal is case sensitive", "Orders.create", "orders.create", false},
		{"star matches one token", "orders.*", "orders.create", true},
		{"star requires a token", "orders.*", "orders", false},
		{"star matches only one token", "orders.*", "orders.create.42", false},
		{"hash matches zero tokens", "orders.#", "orders", true},
		{"hash matches many tokens", "orders.#", "orders.create.42.retry", true},
		{"hash preserves tail alignment", "dispatch.#.123.#", "dispatch.email.123.retry", true},
		{"hash absorbs zero on both sides", "dispatch.#.123.#", "dispatch.123", true},
		{"hash cannot invent literal", "dispatch.#.123.#", "dispatch.124", false},
		{"leading hash", "#.123456.#", "a.b.123456", true},
		{"lone hash matches everything", "#", "anything.at.all", true},
		{"lone hash matches single token", "#", "x", true},
		{"token count mismatch", "a.b.c", "a.b", false},
		{"alternatives are ORed", "dispatch.# email.#", "email.send.9", true},
		{"no alternative matches", "dispatch.# email.#", "billing.charge", false},
		{"empty expression fails closed", "", "orders.create", false},
		{"whitespace expression fails closed", "   \t ", "orders.create", false},
		{"interior star", "orders.*.42", "orders.create.42", true},
		{"interior star mismatch", "orders.*.42", "orders.create.43", false},
		{"hash then star", "#.*", "a.b.c", true},
		{"hash then star needs one token", "a.#.*", "a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := pattern.Compile(tt.expression)
			assert.Equal(t, tt.want, f.Matches(tt.routingKey))
		})
	}
}

func TestFilter_Empty(t *testing.T) {
	assert.True(t, pattern.Compile("").Empty())
	assert.True(t, pattern.Compile("  ").Empty())
	assert.False(t, pattern.Compile("orders.#").Empty())
}

func TestFilter_Expression(t *testing.T) {
	f := pattern.Compile("orders.# email.#")
	assert.Equal(t, "orders.# email.#", f.Expression())
}

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func genUsage(t *rapid.T, label string) TokenUsage {
	return TokenUsage{
		PromptTokens:     rapid.IntRange(0, 1<<20).Draw(t, label+"_prompt"),
		CompletionTokens: rapid.IntRange(0, 1<<20).Draw(t, label+"_completion"),
		TotalTokens:      rapid.IntRange(0, 1<<21).Draw(t, label+"_total"),
		Cost:             float64(rapid.IntRange(0, 1_000_000).Draw(t, label+"_cost")) / 1000,
	}
}

func TestTokenUsageAddCommutative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genUsage(t, "a")
		b := genUsage(t, "b")

		ab := a
		ab.Add(b)
		ba := b
		ba.Add(a)

		assert.Equal(t, ab, ba)
	})
}

func TestTokenUsageAddAssociative(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genUsage(t, "a")
		b := genUsage(t, "b")
		c := genUsage(t, "c")

		// (a+b)+c
		left := a
		left.Add(b)
		left.Add(c)

		// a+(b+c)
		bc := b
		bc.Add(c)
		right := a
		right.Add(bc)

		assert.Equal(t, left.PromptTokens, right.PromptTokens)
		assert.Equal(t, left.CompletionTokens, right.CompletionTokens)
		assert.Equal(t, left.TotalTokens, right.TotalTokens)
		assert.InDelta(t, left.Cost, right.Cost, 1e-9)
	})
}

func TestTokenUsageAddZeroIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := genUsage(t, "a")
		sum := a
		sum.Add(TokenUsage{})
		assert.Equal(t, a, sum)
	})
}

package names

import (
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextIsDescriptorAndWord(t *testing.T) {
	g := New(rand.New(rand.NewPCG(1, 2)))
	for range 100 {
		name, emoji := g.Next()
		require.NotEmpty(t, emoji)

		descriptor, rest, ok := strings.Cut(name, " ")
		require.True(t, ok, name)
		assert.Contains(t, descriptors, descriptor)
		assert.True(t, slices.ContainsFunc(words, func(w word) bool {
			return w.text == rest && w.emoji == emoji
		}), name)
	}
}

func TestSeededGeneratorsAgree(t *testing.T) {
	a := New(rand.New(rand.NewPCG(7, 7)))
	b := New(rand.New(rand.NewPCG(7, 7)))
	for range 10 {
		an, ae := a.Next()
		bn, be := b.Next()
		assert.Equal(t, an, bn)
		assert.Equal(t, ae, be)
	}
}

func TestGlobalSource(t *testing.T) {
	name, emoji := New(nil).Next()
	assert.NotEmpty(t, name)
	assert.NotEmpty(t, emoji)
}

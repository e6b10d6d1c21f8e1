package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityPathNormalisation(t *testing.T) {
	a := ParseEntityPath("world//robot/")
	b := NewEntityPath("world", "robot")

	assert.Equal(t, "world/robot", a.String())
	assert.Equal(t, a, b, "empty parts are dropped")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestEntityPathNFC(t *testing.T) {
	// "é" precomposed vs "e" + combining acute accent
	composed := ParseEntityPath("café")
	decomposed := ParseEntityPath("café")

	assert.Equal(t, composed.Hash(), decomposed.Hash(), "NFC normalisation should unify paths")
	assert.Equal(t, composed.String(), decomposed.String())
}

func TestEntityPathHashDiffers(t *testing.T) {
	assert.NotEqual(t, ParseEntityPath("a/b").Hash(), ParseEntityPath("a/c").Hash())
	assert.NotEqual(t, ParseEntityPath("ab").Hash(), ParseEntityPath("a/b").Hash())
}

func TestEntityPathHierarchy(t *testing.T) {
	p := ParseEntityPath("world/robot/camera")

	assert.Equal(t, []string{"world", "robot", "camera"}, p.Parts())
	assert.Equal(t, "world/robot", p.Parent().String())
	assert.True(t, p.IsDescendantOf(ParseEntityPath("world")))
	assert.False(t, p.IsDescendantOf(ParseEntityPath("wor")))
	assert.False(t, p.IsDescendantOf(p))
	assert.True(t, p.IsDescendantOf(EntityPath{}))

	root := ParseEntityPath("")
	assert.True(t, root.IsRoot())
	assert.Equal(t, root, root.Parent())
	assert.Nil(t, root.Parts())
}

func TestEntityPathText(t *testing.T) {
	p := ParseEntityPath("points/left")
	text, err := p.MarshalText()
	require.NoError(t, err)

	var decoded EntityPath
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, p, decoded)
}

func TestComponentName(t *testing.T) {
	c := ComponentName("strata.components.Position2D")

	assert.Equal(t, "Position2D", c.Short())
	assert.Equal(t, "plain", ComponentName("plain").Short())
	assert.Equal(t, c.Hash(), ComponentName("strata.components.Position2D").Hash())
	assert.NotEqual(t, c.Hash(), ComponentName("strata.components.Color").Hash())
}

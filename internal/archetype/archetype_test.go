package archetype

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/types"
)

func TestBuiltinsCompile(t *testing.T) {
	r, err := Builtins()
	require.NoError(t, err)

	assert.Equal(t, []string{"Image", "Points2D", "Points3D", "Scalar", "TextLog"}, r.Names())

	points, ok := r.Get("Points2D")
	require.True(t, ok)
	assert.Equal(t, []types.ComponentName{"strata.components.Position2D"}, points.Required())
	assert.Equal(t, []types.ComponentName{"strata.components.Color", "strata.components.Radius"}, points.Recommended())

	primary, ok := points.Primary()
	require.True(t, ok)
	assert.Equal(t, types.ComponentName("strata.components.Position2D"), primary)

	image, ok := r.Get("Image")
	require.True(t, ok)
	slot, ok := image.Component("strata.components.ImageBuffer")
	require.True(t, ok)
	assert.Equal(t, types.DataTypeBlobRef, slot.DataType)
	assert.Len(t, image.Required(), 2)

	_, ok = r.Get("Mesh3D")
	assert.False(t, ok)
}

func TestCompileKeepsDeclarationOrder(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		archetype: Boxes: {
			components: {
				"b.Half": {role: "required", type: "float64"}
				"a.Center": {role: "recommended", type: "float64"}
				"c.Label": {role: "optional", type: "string"}
			}
		}
	`)
	require.NoError(t, v.Err())

	a, err := Compile(v.LookupPath(cue.ParsePath("archetype.Boxes")))
	require.NoError(t, err)

	assert.Equal(t, "Boxes", a.Name)
	assert.Equal(t, []types.ComponentName{"b.Half", "a.Center", "c.Label"}, a.ComponentNames())
}

func TestCompileSourceErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{
			name: "bad role",
			src: `archetype: Bad: components: {
	"x.Value": {role: "mandatory", type: "float64"}
}`,
			wantMsg: "role",
		},
		{
			name: "bad type",
			src: `archetype: Bad: components: {
	"x.Value": {role: "required", type: "complex128"}
}`,
			wantMsg: "type",
		},
		{
			name: "unknown field",
			src: `archetype: Bad: {
	components: "x.Value": {role: "required", type: "float64"}
	colour: "red"
}`,
			wantMsg: "colour",
		},
		{
			name: "no required component",
			src: `archetype: Bad: components: {
	"x.Value": {role: "optional", type: "float64"}
}`,
			wantMsg: "no required component",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileSource("bad.cue", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)

			var ce *CompileError
			assert.True(t, errors.As(err, &ce), "compile errors carry positions")
		})
	}
}

func TestCompileErrorFormatting(t *testing.T) {
	err := &CompileError{Field: "components", Message: "components are required"}
	assert.Equal(t, "components: components are required", err.Error())
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	src := `package defs

archetype: Points2D: {
	doc: "Override with a mandatory label"
	components: {
		"strata.components.Position2D": {role: "required", type: "float64"}
		"strata.components.Label": {role: "required", type: "string"}
	}
}

archetype: Arrows2D: components: {
	"strata.components.Vector2D": {role: "required", type: "float64"}
	"strata.components.Origin2D": {role: "recommended", type: "float64"}
}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "defs.cue"), []byte(src), 0o644))

	r := MustBuiltins()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	arrows, ok := r.Get("Arrows2D")
	require.True(t, ok)
	assert.Len(t, arrows.Components, 2)

	points, ok := r.Get("Points2D")
	require.True(t, ok)
	assert.Len(t, points.Required(), 2, "user definitions replace builtins")
}

func TestLoadDirErrors(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = LoadDir(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no CUE files")
}

package archetype

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

//go:embed builtin/*.cue
var builtinFS embed.FS

const schemaFile = "builtin/schema.cue"

// schema compiles the embedded #Archetype schema.
func schema(ctx *cue.Context) (cue.Value, error) {
	src, err := builtinFS.ReadFile(schemaFile)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read schema: %w", err)
	}
	v := ctx.CompileBytes(src, cue.Filename(schemaFile))
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// CompileSource compiles CUE source holding one or more archetypes.
// filename is used in error positions.
func CompileSource(filename string, src []byte) ([]Archetype, error) {
	ctx := cuecontext.New()
	s, err := schema(ctx)
	if err != nil {
		return nil, err
	}
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return compileAll(s.Unify(v))
}

// LoadDir loads every CUE file of the package in dir and compiles its archetypes.
func LoadDir(dir string) ([]Archetype, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("archetype directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.cue"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading CUE files: %w", formatCUEError(inst.Err))
	}
	v := ctx.BuildInstance(inst)

	s, err := schema(ctx)
	if err != nil {
		return nil, err
	}
	return compileAll(s.Unify(v))
}

func loadBuiltins() ([]Archetype, error) {
	ctx := cuecontext.New()
	s, err := schema(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil, fmt.Errorf("read builtins: %w", err)
	}
	v := s
	for _, e := range entries {
		name := "builtin/" + e.Name()
		if name == schemaFile {
			continue
		}
		src, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		v = v.Unify(ctx.CompileBytes(src, cue.Filename(name)))
	}
	return compileAll(v)
}

// compileAll validates v against the schema and compiles every archetype,
// sorted by name.
func compileAll(v cue.Value) ([]Archetype, error) {
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}
	archVal := v.LookupPath(cue.ParsePath("archetype"))
	if !archVal.Exists() {
		return nil, &CompileError{Field: "archetype", Message: "no archetypes defined", Pos: v.Pos()}
	}

	iter, err := archVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Archetype
	for iter.Next() {
		a, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

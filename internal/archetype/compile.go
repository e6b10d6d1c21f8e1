package archetype

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/strata/internal/types"
)

// Compile converts one archetype CUE value into a types.Archetype.
//
// The value should be the archetype struct itself, e.g. the result of
// v.LookupPath(cue.ParsePath("archetype.Points2D")). Components keep their
// CUE declaration order.
func Compile(v cue.Value) (types.Archetype, error) {
	if err := v.Err(); err != nil {
		return types.Archetype{}, formatCUEError(err)
	}

	a := types.Archetype{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		a.Name = labels[len(labels)-1].Unquoted()
	}

	compsVal := v.LookupPath(cue.ParsePath("components"))
	if !compsVal.Exists() {
		return a, &CompileError{Field: "components", Message: "components are required", Pos: v.Pos()}
	}

	iter, err := compsVal.Fields()
	if err != nil {
		return a, formatCUEError(err)
	}
	for iter.Next() {
		comp, err := compileComponent(iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return a, err
		}
		a.Components = append(a.Components, comp)
	}

	if len(a.Required()) == 0 {
		return a, &CompileError{
			Field:   "components",
			Message: fmt.Sprintf("archetype %s declares no required component", a.Name),
			Pos:     v.Pos(),
		}
	}
	return a, nil
}

func compileComponent(name string, v cue.Value) (types.ArchetypeComponent, error) {
	comp := types.ArchetypeComponent{Name: types.ComponentName(name)}

	roleStr, err := v.LookupPath(cue.ParsePath("role")).String()
	if err != nil {
		return comp, formatCUEError(err)
	}
	if comp.Role, err = types.ParseComponentRole(roleStr); err != nil {
		return comp, &CompileError{Field: "role", Message: err.Error(), Pos: v.Pos()}
	}

	typeStr, err := v.LookupPath(cue.ParsePath("type")).String()
	if err != nil {
		return comp, formatCUEError(err)
	}
	if comp.DataType, err = types.ParseDataType(typeStr); err != nil {
		return comp, &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
	}
	return comp, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// First error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}
	return err
}

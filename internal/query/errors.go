package query

import (
	"errors"
	"fmt"

	"github.com/roach88/strata/internal/types"
)

// ErrCodeMissingComponent is the code reported by MissingComponentError.
const ErrCodeMissingComponent = "MISSING_COMPONENT"

// MissingComponentError reports a mandatory component with no result.
type MissingComponentError struct {
	Entity    types.EntityPath
	Component types.ComponentName
	// Archetype is set when the component was required by an archetype.
	Archetype string
}

// Code returns the error category.
func (e *MissingComponentError) Code() string { return ErrCodeMissingComponent }

// Error implements the error interface.
func (e *MissingComponentError) Error() string {
	if e.Archetype != "" {
		return fmt.Sprintf("%s: %s requires %s (entity=%s)",
			ErrCodeMissingComponent, e.Archetype, e.Component, e.Entity)
	}
	return fmt.Sprintf("%s: no value for %s (entity=%s)", ErrCodeMissingComponent, e.Component, e.Entity)
}

// IsMissingComponentError returns true if err wraps a *MissingComponentError.
func IsMissingComponentError(err error) bool {
	var me *MissingComponentError
	return errors.As(err, &me)
}

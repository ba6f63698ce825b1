package compiler

import (
	"fmt"
	"go/token"
	"unicode"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ir"
)

// Validation error codes (E120-E139)
const (
	ErrInvalidIdentifier = "E120" // name is not an exported Go identifier
	ErrDuplicateName     = "E121" // name or generated identifier collides
	ErrSideOwner         = "E122" // side belongs to another relation
	ErrUnpairedOpposite  = "E123" // sides are not each other's opposite
	ErrSymmetricSide     = "E124" // symmetric relation side is not self-opposite
	ErrUnknownContainer  = "E125" // container kind is not known
	ErrInvalidCapacity   = "E126" // capacity out of range or on a non-inline side
)

// ValidationError represents a declaration validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks compiled relation declarations.
// Returns all errors found (does not fail-fast).
func Validate(specs []ir.RelationSpec) []ValidationError {
	var errs []ValidationError

	// Every name becomes a Go identifier in generated code: the marker type,
	// the "<Relation>Relation" descriptor variable and one variable per side.
	idents := make(map[string]string)
	claim := func(ident, owner, field string) {
		if prev, ok := idents[ident]; ok {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("identifier %s of %s collides with %s", ident, owner, prev),
				Code:    ErrDuplicateName,
			})
			return
		}
		idents[ident] = owner
	}

	for i, rel := range specs {
		field := fmt.Sprintf("relation.%s", rel.Name)
		if !isExportedIdent(rel.Name) {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("relation name %q must be an exported Go identifier", rel.Name),
				Code:    ErrInvalidIdentifier,
			})
		}
		claim(rel.Name, "relation "+rel.Name, field)
		claim(rel.Name+"Relation", "relation "+rel.Name, field)

		for _, side := range rel.Sides() {
			errs = append(errs, validateSide(rel, side)...)
			claim(side.Name, "side "+side.Name, fmt.Sprintf("relatable.%s", side.Name))
		}

		if rel.Symmetric() {
			if rel.Source.Opposite != rel.Source.Name {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("symmetric side %s must be its own opposite, got %q", rel.Source.Name, rel.Source.Opposite),
					Code:    ErrSymmetricSide,
				})
			}
			continue
		}

		if rel.Source.Opposite != rel.Target.Name || rel.Target.Opposite != rel.Source.Name {
			errs = append(errs, ValidationError{
				Field: fmt.Sprintf("relation[%d]", i),
				Message: fmt.Sprintf("relation %s: %s.opposite=%q and %s.opposite=%q must name each other",
					rel.Name, rel.Source.Name, rel.Source.Opposite, rel.Target.Name, rel.Target.Opposite),
				Code: ErrUnpairedOpposite,
			})
		}
	}

	return errs
}

func validateSide(rel ir.RelationSpec, side ir.SideSpec) []ValidationError {
	var errs []ValidationError
	field := fmt.Sprintf("relatable.%s", side.Name)

	if !isExportedIdent(side.Name) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("side name %q must be an exported Go identifier", side.Name),
			Code:    ErrInvalidIdentifier,
		})
	}

	if side.Relation != rel.Name {
		errs = append(errs, ValidationError{
			Field:   field + ".relation",
			Message: fmt.Sprintf("side %s belongs to %q but is used by relation %s", side.Name, side.Relation, rel.Name),
			Code:    ErrSideOwner,
		})
	}

	kind, err := container.ParseKind(side.Container)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".container",
			Message: err.Error(),
			Code:    ErrUnknownContainer,
		})
		return errs
	}

	switch {
	case kind != container.KindInline && side.Capacity != 0:
		errs = append(errs, ValidationError{
			Field:   field + ".capacity",
			Message: fmt.Sprintf("capacity only applies to inline containers, %s is %s", side.Name, kind),
			Code:    ErrInvalidCapacity,
		})
	case side.Capacity < 0 || side.Capacity > container.MaxInlineCapacity:
		errs = append(errs, ValidationError{
			Field:   field + ".capacity",
			Message: fmt.Sprintf("capacity %d outside 1..%d", side.Capacity, container.MaxInlineCapacity),
			Code:    ErrInvalidCapacity,
		})
	}

	return errs
}

func isExportedIdent(name string) bool {
	if !token.IsIdentifier(name) {
		return false
	}
	return unicode.IsUpper([]rune(name)[0])
}

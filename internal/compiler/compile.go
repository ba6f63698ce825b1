package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"go.uber.org/multierr"

	"github.com/roach88/relsync/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileRelations compiles every relation declared under the root value.
//
// The root is unified with the declaration schema first, so unknown fields,
// unknown container kinds and out-of-range capacities are reported with CUE
// positions. Every declared relatable side must belong to exactly one
// relation. The result is sorted by relation name and validated.
//
// Expected shape:
//
//	relation: Family: { source: "ChildOf", target: "ParentOf" }
//	relatable: ChildOf:  { relation: "Family", opposite: "ParentOf", container: "single" }
//	relatable: ParentOf: { relation: "Family", opposite: "ChildOf", container: "inline", capacity: 8 }
func CompileRelations(root cue.Value) ([]ir.RelationSpec, error) {
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := root.Context().CompileString(schemaSource, cue.Filename("relsync-schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile declaration schema: %w", err)
	}
	v := root.Unify(schema)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	sides, positions, order, err := compileSides(v.LookupPath(cue.ParsePath("relatable")))
	if err != nil {
		return nil, err
	}

	iter, err := v.LookupPath(cue.ParsePath("relation")).Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	used := make(map[string]bool)
	var specs []ir.RelationSpec
	for iter.Next() {
		spec, err := CompileRelation(iter.Value(), sides)
		if err != nil {
			return nil, err
		}
		used[spec.Source.Name] = true
		used[spec.Target.Name] = true
		specs = append(specs, *spec)
	}
	if len(specs) == 0 {
		return nil, &CompileError{Field: "relation", Message: "no relations declared", Pos: root.Pos()}
	}

	for _, name := range order {
		if !used[name] {
			return nil, &CompileError{
				Field:   "relatable." + name,
				Message: fmt.Sprintf("side %s is not used by any relation", name),
				Pos:     positions[name],
			}
		}
	}

	ir.SortSpecs(specs)

	var errs error
	for _, verr := range Validate(specs) {
		errs = multierr.Append(errs, verr)
	}
	if errs != nil {
		return nil, errs
	}
	return specs, nil
}

func compileSides(v cue.Value) (map[string]ir.SideSpec, map[string]token.Pos, []string, error) {
	sides := make(map[string]ir.SideSpec)
	positions := make(map[string]token.Pos)
	if !v.Exists() {
		return sides, positions, nil, nil
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, nil, nil, formatCUEError(err)
	}
	var order []string
	for iter.Next() {
		spec, err := CompileSide(iter.Value())
		if err != nil {
			return nil, nil, nil, err
		}
		sides[spec.Name] = *spec
		positions[spec.Name] = iter.Value().Pos()
		order = append(order, spec.Name)
	}
	return sides, positions, order, nil
}

// CompileSide parses one relatable declaration. The side name is the
// value's label.
func CompileSide(v cue.Value) (*ir.SideSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.SideSpec{Name: label(v)}

	var err error
	if spec.Relation, err = requiredString(v, "relation"); err != nil {
		return nil, err
	}
	if spec.Opposite, err = requiredString(v, "opposite"); err != nil {
		return nil, err
	}
	if spec.Container, err = requiredString(v, "container"); err != nil {
		return nil, err
	}

	if capVal := v.LookupPath(cue.ParsePath("capacity")); capVal.Exists() {
		n, err := capVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		spec.Capacity = int(n)
	}

	return spec, nil
}

// CompileRelation parses one relation declaration and resolves its sides
// against the compiled relatable declarations.
func CompileRelation(v cue.Value, sides map[string]ir.SideSpec) (*ir.RelationSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ir.RelationSpec{Name: label(v)}

	for _, field := range []string{"source", "target"} {
		name, err := requiredString(v, field)
		if err != nil {
			return nil, err
		}
		side, ok := sides[name]
		if !ok {
			return nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("relation %s: unknown relatable side %q", spec.Name, name),
				Pos:     v.LookupPath(cue.ParsePath(field)).Pos(),
			}
		}
		if field == "source" {
			spec.Source = side
		} else {
			spec.Target = side
		}
	}

	return spec, nil
}

func label(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return sels[len(sels)-1].String()
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
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

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

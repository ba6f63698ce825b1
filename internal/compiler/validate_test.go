package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/relsync/internal/ir"
)

func validFamily() ir.RelationSpec {
	return ir.RelationSpec{
		Name:   "Family",
		Source: ir.SideSpec{Name: "ChildOf", Relation: "Family", Opposite: "ParentOf", Container: "single"},
		Target: ir.SideSpec{Name: "ParentOf", Relation: "Family", Opposite: "ChildOf", Container: "inline", Capacity: 8},
	}
}

func codes(errs []ValidationError) []string {
	var out []string
	for _, e := range errs {
		out = append(out, e.Code)
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	side := ir.SideSpec{Name: "SpouseOf", Relation: "Marriage", Opposite: "SpouseOf", Container: "single"}
	errs := Validate([]ir.RelationSpec{validFamily(), {Name: "Marriage", Source: side, Target: side}})
	assert.Empty(t, errs)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ir.RelationSpec)
		code   string
	}{
		{"lower-case relation", func(r *ir.RelationSpec) { r.Name = "family"; r.Source.Relation = "family"; r.Target.Relation = "family" }, ErrInvalidIdentifier},
		{"side not identifier", func(r *ir.RelationSpec) { r.Source.Name = "Child-Of"; r.Target.Opposite = "Child-Of" }, ErrInvalidIdentifier},
		{"side name equals relation", func(r *ir.RelationSpec) { r.Source.Name = "Family"; r.Target.Opposite = "Family" }, ErrDuplicateName},
		{"side collides with descriptor var", func(r *ir.RelationSpec) { r.Target.Name = "FamilyRelation"; r.Source.Opposite = "FamilyRelation" }, ErrDuplicateName},
		{"owner mismatch", func(r *ir.RelationSpec) { r.Target.Relation = "Clan" }, ErrSideOwner},
		{"unpaired", func(r *ir.RelationSpec) { r.Source.Opposite = "ChildOf" }, ErrUnpairedOpposite},
		{"symmetric not self-opposite", func(r *ir.RelationSpec) { r.Target = r.Source }, ErrSymmetricSide},
		{"unknown container", func(r *ir.RelationSpec) { r.Source.Container = "vector" }, ErrUnknownContainer},
		{"capacity on list", func(r *ir.RelationSpec) { r.Target.Container = "list" }, ErrInvalidCapacity},
		{"capacity too large", func(r *ir.RelationSpec) { r.Target.Capacity = 9 }, ErrInvalidCapacity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validFamily()
			tt.mutate(&spec)
			errs := Validate([]ir.RelationSpec{spec})
			assert.Contains(t, codes(errs), tt.code)
		})
	}
}

func TestValidate_DuplicateRelation(t *testing.T) {
	errs := Validate([]ir.RelationSpec{validFamily(), validFamily()})
	assert.Contains(t, codes(errs), ErrDuplicateName)
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "relatable.X", Message: "bad", Code: ErrUnknownContainer}
	assert.Equal(t, "[E125] relatable.X: bad", err.Error())
}

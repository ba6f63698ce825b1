package compiler

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/relsync/internal/ir"
)

func TestGenerateGo_Family(t *testing.T) {
	src, err := GenerateGo("lineage", []ir.RelationSpec{validFamily()})
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, "// Code generated by relsync generate. DO NOT EDIT.")
	assert.Contains(t, out, "package lineage")
	assert.Contains(t, out, "type Family struct{}")
	assert.Contains(t, out, `relation.MustDefine[Family]("Family",`)
	assert.Contains(t, out, `relation.SideSpec{Name: "ChildOf", Container: container.KindSingle},`)
	assert.Contains(t, out, `relation.SideSpec{Name: "ParentOf", Container: container.KindInline, Capacity: 8},`)
	assert.Contains(t, out, "ChildOf  = FamilyRelation.Source()")
	assert.Contains(t, out, "relation.Register(w, FamilyRelation)")
	assert.Contains(t, out, `const SpecHash = "`+ir.MustSpecHash([]ir.RelationSpec{validFamily()})+`"`)

	_, err = parser.ParseFile(token.NewFileSet(), "relations.go", src, parser.AllErrors)
	assert.NoError(t, err)
}

func TestGenerateGo_Symmetric(t *testing.T) {
	side := ir.SideSpec{Name: "FriendOf", Relation: "Friendship", Opposite: "FriendOf", Container: "set"}
	src, err := GenerateGo("social", []ir.RelationSpec{{Name: "Friendship", Source: side, Target: side}})
	require.NoError(t, err)

	out := string(src)
	assert.Contains(t, out, `relation.MustDefineSymmetric[Friendship]("Friendship",`)
	assert.Contains(t, out, "var FriendOf = FriendshipRelation.Source()")
	assert.NotContains(t, out, "Target()")
}

func TestGenerateGo_Deterministic(t *testing.T) {
	side := ir.SideSpec{Name: "FriendOf", Relation: "Friendship", Opposite: "FriendOf", Container: "set"}
	friendship := ir.RelationSpec{Name: "Friendship", Source: side, Target: side}

	a, err := GenerateGo("p", []ir.RelationSpec{validFamily(), friendship})
	require.NoError(t, err)
	b, err := GenerateGo("p", []ir.RelationSpec{friendship, validFamily()})
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerateGo_Rejects(t *testing.T) {
	_, err := GenerateGo("func", []ir.RelationSpec{validFamily()})
	assert.Error(t, err)

	_, err = GenerateGo("p", nil)
	assert.Error(t, err)

	bad := validFamily()
	bad.Source.Container = "vector"
	_, err = GenerateGo("p", []ir.RelationSpec{bad})
	assert.ErrorContains(t, err, ErrUnknownContainer)
}

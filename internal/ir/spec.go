package ir

import (
	"slices"
	"strings"
)

// RelationSpec is a compiled relation declaration.
//
// A symmetric relation has one side that is its own opposite; Source and
// Target are then identical.
type RelationSpec struct {
	Name   string   `json:"name"`
	Source SideSpec `json:"source"`
	Target SideSpec `json:"target"`
}

// SideSpec is a compiled relatable side declaration.
type SideSpec struct {
	Name      string `json:"name"`
	Relation  string `json:"relation"`
	Opposite  string `json:"opposite"`
	Container string `json:"container"`
	// Capacity is the inline capacity; zero for other containers.
	Capacity int `json:"capacity,omitempty"`
}

// Symmetric reports whether both roles are the same side.
func (r RelationSpec) Symmetric() bool {
	return r.Source.Name == r.Target.Name
}

// Sides returns the distinct sides, source first.
func (r RelationSpec) Sides() []SideSpec {
	if r.Symmetric() {
		return []SideSpec{r.Source}
	}
	return []SideSpec{r.Source, r.Target}
}

// ToValue converts the side into its canonical form.
func (s SideSpec) ToValue() Object {
	obj := Object{
		"name":      String(s.Name),
		"relation":  String(s.Relation),
		"opposite":  String(s.Opposite),
		"container": String(s.Container),
	}
	if s.Capacity != 0 {
		obj["capacity"] = Int(s.Capacity)
	}
	return obj
}

// ToValue converts the relation into its canonical form.
func (r RelationSpec) ToValue() Object {
	return Object{
		"name":   String(r.Name),
		"source": r.Source.ToValue(),
		"target": r.Target.ToValue(),
	}
}

// SortSpecs orders specs by relation name.
func SortSpecs(specs []RelationSpec) {
	slices.SortFunc(specs, func(a, b RelationSpec) int {
		return strings.Compare(a.Name, b.Name)
	})
}

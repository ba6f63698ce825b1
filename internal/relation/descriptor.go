package relation

import (
	"errors"
	"fmt"

	"github.com/roach88/relsync/internal/container"
	"github.com/roach88/relsync/internal/ecs"
	"github.com/roach88/relsync/internal/ir"
)

// ErrInvalidDescriptor is wrapped by every descriptor construction error.
var ErrInvalidDescriptor = errors.New("invalid relation descriptor")

// SideSpec declares one side of a relation.
type SideSpec struct {
	Name      string
	Container container.Kind
	// Capacity is the inline capacity for container.KindInline.
	Capacity int
}

// Relation describes relation R: its name and its two sides.
//
// R is a marker type. Sides of different relations have different types, so
// a side can never be paired with a side of another relation.
type Relation[R any] struct {
	name   string
	source *Side[R]
	target *Side[R]
}

// Side is one role of relation R.
type Side[R any] struct {
	rel      *Relation[R]
	name     string
	kind     container.Kind
	capacity int
	opposite *Side[R]
}

// Define builds a relation with two distinct sides, each the other's opposite.
func Define[R any](name string, source, target SideSpec) (*Relation[R], error) {
	if source.Name == target.Name {
		return nil, fmt.Errorf("%w: relation %s: source and target are both %q, use DefineSymmetric",
			ErrInvalidDescriptor, name, source.Name)
	}
	rel := &Relation[R]{name: name}
	src, err := newSide(rel, source)
	if err != nil {
		return nil, err
	}
	tgt, err := newSide(rel, target)
	if err != nil {
		return nil, err
	}
	src.opposite, tgt.opposite = tgt, src
	rel.source, rel.target = src, tgt
	return rel, nil
}

// DefineSymmetric builds a relation whose single side is its own opposite.
func DefineSymmetric[R any](name string, side SideSpec) (*Relation[R], error) {
	rel := &Relation[R]{name: name}
	s, err := newSide(rel, side)
	if err != nil {
		return nil, err
	}
	s.opposite = s
	rel.source, rel.target = s, s
	return rel, nil
}

// MustDefine is like Define but panics on error.
// Intended for package-level descriptor variables.
func MustDefine[R any](name string, source, target SideSpec) *Relation[R] {
	rel, err := Define[R](name, source, target)
	if err != nil {
		panic(err)
	}
	return rel
}

// MustDefineSymmetric is like DefineSymmetric but panics on error.
func MustDefineSymmetric[R any](name string, side SideSpec) *Relation[R] {
	rel, err := DefineSymmetric[R](name, side)
	if err != nil {
		panic(err)
	}
	return rel
}

// Build constructs descriptors from a compiled declaration.
func Build[R any](spec ir.RelationSpec) (*Relation[R], error) {
	src, err := sideFromIR(spec.Name, spec.Source)
	if err != nil {
		return nil, err
	}
	if spec.Symmetric() {
		if spec.Source.Opposite != spec.Source.Name {
			return nil, fmt.Errorf("%w: relation %s: symmetric side %s must be its own opposite, got %q",
				ErrInvalidDescriptor, spec.Name, spec.Source.Name, spec.Source.Opposite)
		}
		return DefineSymmetric[R](spec.Name, src)
	}

	tgt, err := sideFromIR(spec.Name, spec.Target)
	if err != nil {
		return nil, err
	}
	if spec.Source.Opposite != spec.Target.Name || spec.Target.Opposite != spec.Source.Name {
		return nil, fmt.Errorf("%w: relation %s: sides %s and %s are not each other's opposite",
			ErrInvalidDescriptor, spec.Name, spec.Source.Name, spec.Target.Name)
	}
	return Define[R](spec.Name, src, tgt)
}

func sideFromIR(relation string, s ir.SideSpec) (SideSpec, error) {
	if s.Relation != relation {
		return SideSpec{}, fmt.Errorf("%w: side %s belongs to %q, not %q",
			ErrInvalidDescriptor, s.Name, s.Relation, relation)
	}
	kind, err := container.ParseKind(s.Container)
	if err != nil {
		return SideSpec{}, fmt.Errorf("%w: side %s: %v", ErrInvalidDescriptor, s.Name, err)
	}
	return SideSpec{Name: s.Name, Container: kind, Capacity: s.Capacity}, nil
}

func newSide[R any](rel *Relation[R], spec SideSpec) (*Side[R], error) {
	if rel.name == "" {
		return nil, fmt.Errorf("%w: relation name is empty", ErrInvalidDescriptor)
	}
	if spec.Name == "" {
		return nil, fmt.Errorf("%w: relation %s: side name is empty", ErrInvalidDescriptor, rel.name)
	}
	if spec.Container > container.KindSet {
		return nil, fmt.Errorf("%w: side %s: unknown container kind %d", ErrInvalidDescriptor, spec.Name, spec.Container)
	}
	capacity := 0
	if spec.Container == container.KindInline {
		capacity = spec.Capacity
		if capacity < 0 || capacity > container.MaxInlineCapacity {
			return nil, fmt.Errorf("%w: side %s: inline capacity %d outside 1..%d",
				ErrInvalidDescriptor, spec.Name, capacity, container.MaxInlineCapacity)
		}
		if capacity == 0 {
			capacity = container.DefaultInlineCapacity
		}
	}
	return &Side[R]{rel: rel, name: spec.Name, kind: spec.Container, capacity: capacity}, nil
}

// Name returns the relation name.
func (r *Relation[R]) Name() string { return r.name }

// Source returns the source side.
func (r *Relation[R]) Source() *Side[R] { return r.source }

// Target returns the target side. It equals Source for symmetric relations.
func (r *Relation[R]) Target() *Side[R] { return r.target }

// Symmetric reports whether the relation has a single self-opposite side.
func (r *Relation[R]) Symmetric() bool { return r.source == r.target }

// Sides returns the distinct sides, source first.
func (r *Relation[R]) Sides() []*Side[R] {
	if r.Symmetric() {
		return []*Side[R]{r.source}
	}
	return []*Side[R]{r.source, r.target}
}

// Side looks a side up by name.
func (r *Relation[R]) Side(name string) (*Side[R], bool) {
	for _, s := range r.Sides() {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}

// Spec converts the descriptors back into their declaration form.
func (r *Relation[R]) Spec() ir.RelationSpec {
	return ir.RelationSpec{Name: r.name, Source: r.source.spec(), Target: r.target.spec()}
}

func (s *Side[R]) spec() ir.SideSpec {
	return ir.SideSpec{
		Name:      s.name,
		Relation:  s.rel.name,
		Opposite:  s.opposite.name,
		Container: s.kind.String(),
		Capacity:  s.capacity,
	}
}

// Name returns the side name.
func (s *Side[R]) Name() string { return s.name }

// Relation returns the owning relation.
func (s *Side[R]) Relation() *Relation[R] { return s.rel }

// Opposite returns the side that mirrors this one.
func (s *Side[R]) Opposite() *Side[R] { return s.opposite }

// Symmetric reports whether the side is its own opposite.
func (s *Side[R]) Symmetric() bool { return s.opposite == s }

// Kind returns the container kind records of this side use.
func (s *Side[R]) Kind() container.Kind { return s.kind }

// Capacity returns the inline capacity, or 0 for other kinds.
func (s *Side[R]) Capacity() int { return s.capacity }

// ComponentID returns the world component slot, "<Relation>/<Side>".
func (s *Side[R]) ComponentID() ecs.ComponentID {
	return ecs.ComponentID(s.rel.name + "/" + s.name)
}

// String returns "<Relation>/<Side>".
func (s *Side[R]) String() string {
	return string(s.ComponentID())
}

func (s *Side[R]) newContainer(entities ...ecs.Entity) container.Container {
	return container.FromSlice(s.kind, s.capacity, entities...)
}

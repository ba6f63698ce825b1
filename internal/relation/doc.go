// Package relation keeps both ends of a typed entity relationship in step.
//
// A relation is declared once with Define or DefineSymmetric and installed
// on a world with Register. From then on callers only ever write their own
// side:
//
//	family := relation.MustDefine[Family]("Family",
//		relation.SideSpec{Name: "ChildOf", Container: container.KindSingle},
//		relation.SideSpec{Name: "ParentOf", Container: container.KindInline, Capacity: 8},
//	)
//	relation.Register(w, family)
//	relation.Insert(w, child, family.Source(), parent)
//	w.Flush(ctx) // parent now holds ParentOf{child}
//
// Writing a record fires component hooks that schedule mirror commands on the
// world's queue. Nothing touches a peer until the next flush, and every
// command re-reads live state when it is applied. A burst of writes to the
// same edge therefore collapses to its net effect.
//
// INVARIANT: after a flush with no pending work, A's side-N record contains B
// iff B's opposite(N) record contains A.
package relation

package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/kestrel-analysis/kestrel/analysis/lattice"
	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
)

// FreeOutcome classifies a release of a reference's targets.
type FreeOutcome uint8

const (
	// FreeOk means every target was definitely live.
	FreeOk FreeOutcome = iota
	// FreeAlreadyFreed means every target was definitely released before.
	FreeAlreadyFreed
	// FreeUnknown means the targets' state could not be determined.
	FreeUnknown
)

func (o FreeOutcome) String() string {
	switch o {
	case FreeOk:
		return "FreeOk"
	case FreeAlreadyFreed:
		return "FreeAlreadyFreed"
	}
	return "FreeUnknown"
}

// AccessOutcome classifies a dereference of a reference's targets.
type AccessOutcome uint8

const (
	// AccessOk means every target was definitely live.
	AccessOk AccessOutcome = iota
	// AccessFreed means every target was definitely released.
	AccessFreed
	// AccessUnknown means the targets' state could not be determined.
	AccessUnknown
)

func (o AccessOutcome) String() string {
	switch o {
	case AccessOk:
		return "AccessOk"
	case AccessFreed:
		return "AccessFreed"
	}
	return "AccessUnknown"
}

// Model is the abstract memory state: an allocation tag per object and a
// may-points-to handle set per reference variable. Models are immutable;
// every operation returns a derived model.
type Model struct {
	objects *immutable.Map[Handle, lattice.Tag]
	refs    *immutable.Map[string, HandleSet]
}

// NewModel creates a model with no objects and no bindings.
func NewModel() Model {
	return Model{
		objects: utils.NewImmMap[Handle, lattice.Tag](),
		refs:    immutable.NewMap[string, HandleSet](nil),
	}
}

// Allocate creates (or, for a summarized iteration, re-enters) the object of
// an allocation site and returns the model with the handle tagged. The
// caller caps iter at the trip-count bound; re-allocating an existing
// handle joins Allocated onto the old tag, so a summarized object freed in
// an earlier iteration degrades to Unknown instead of resurrecting.
func (m Model) Allocate(site ir.Point, iter int) (Model, Handle) {
	h := Handle{Site: site, Iter: iter}
	tag := lattice.Elements().Allocated()
	if old, found := m.objects.Get(h); found {
		tag = old.Join(tag).Tag()
	}
	return Model{objects: m.objects.Set(h, tag), refs: m.refs}, h
}

// Bind makes a reference variable point to the given handle set.
func (m Model) Bind(v string, hs HandleSet) Model {
	return Model{objects: m.objects, refs: m.refs.Set(v, hs)}
}

// PointsTo returns the handle set a reference variable may point to.
// Unbound variables point nowhere, which accesses treat as Unknown.
func (m Model) PointsTo(v string) HandleSet {
	if hs, found := m.refs.Get(v); found {
		return hs
	}
	return NewHandleSet()
}

// TagOf returns the allocation tag of a handle. Handles the model has never
// seen are Unknown.
func (m Model) TagOf(h Handle) lattice.Tag {
	if tag, found := m.objects.Get(h); found {
		return tag
	}
	return lattice.Elements().UnknownTag()
}

// tagOfSet joins the tags of every handle in the set. The empty set joins
// to Unknown: a reference without provenance could target anything.
func (m Model) tagOfSet(hs HandleSet) lattice.Tag {
	if hs.Empty() {
		return lattice.Elements().UnknownTag()
	}
	tag := lattice.Create().Lattice().Tag().Bot().Tag()
	hs.ForEach(func(h Handle) {
		tag = tag.Join(m.TagOf(h)).Tag()
	})
	return tag
}

// Access classifies a dereference through the given targets without
// changing the model.
func (m Model) Access(hs HandleSet) AccessOutcome {
	switch tag := m.tagOfSet(hs); {
	case tag.IsAllocated():
		return AccessOk
	case tag.IsFreed():
		return AccessFreed
	}
	return AccessUnknown
}

// Free releases the given targets. A single target is updated strongly to
// Freed; multiple candidate targets are updated weakly, joining Freed onto
// each tag, since only one of them is released concretely.
func (m Model) Free(hs HandleSet) (Model, FreeOutcome) {
	var outcome FreeOutcome
	switch tag := m.tagOfSet(hs); {
	case tag.IsAllocated():
		outcome = FreeOk
	case tag.IsFreed():
		outcome = FreeAlreadyFreed
	default:
		outcome = FreeUnknown
	}

	freed := lattice.Elements().Freed()
	objects := m.objects
	strong := hs.Size() == 1
	hs.ForEach(func(h Handle) {
		if strong {
			objects = objects.Set(h, freed)
		} else {
			objects = objects.Set(h, m.TagOf(h).Join(freed).Tag())
		}
	})
	return Model{objects: objects, refs: m.refs}, outcome
}

// Invalidate moves the given targets to Unknown. Used when an opaque call
// may have released or kept any object reachable from its arguments.
func (m Model) Invalidate(hs HandleSet) Model {
	unknown := lattice.Elements().UnknownTag()
	objects := m.objects
	hs.ForEach(func(h Handle) {
		objects = objects.Set(h, unknown)
	})
	return Model{objects: objects, refs: m.refs}
}

// Join merges two models: points-to sets by union, tags pointwise by tag
// join. An object known to only one side keeps its tag; a branch that never
// saw the allocation contributes ⊥.
func (m1 Model) Join(m2 Model) Model {
	objects := m1.objects
	for it := m2.objects.Iterator(); !it.Done(); {
		h, t2, _ := it.Next()
		if t1, found := objects.Get(h); found {
			objects = objects.Set(h, t1.Join(t2).Tag())
		} else {
			objects = objects.Set(h, t2)
		}
	}

	refs := m1.refs
	for it := m2.refs.Iterator(); !it.Done(); {
		v, hs2, _ := it.Next()
		if hs1, found := refs.Get(v); found {
			refs = refs.Set(v, hs1.Union(hs2))
		} else {
			refs = refs.Set(v, hs2)
		}
	}

	return Model{objects: objects, refs: refs}
}

// Leq computes m1 ⊑ m2 pointwise over tags and bindings.
func (m1 Model) Leq(m2 Model) bool {
	for it := m1.objects.Iterator(); !it.Done(); {
		h, t1, _ := it.Next()
		t2, found := m2.objects.Get(h)
		if !found || !t1.Leq(t2) {
			return false
		}
	}
	for it := m1.refs.Iterator(); !it.Done(); {
		v, hs1, _ := it.Next()
		hs2, found := m2.refs.Get(v)
		if !found || !hs1.Subset(hs2) {
			return false
		}
	}
	return true
}

// Eq checks model equality.
func (m1 Model) Eq(m2 Model) bool {
	return m1.Leq(m2) && m2.Leq(m1)
}

func (m Model) String() string {
	type entry struct{ k, v string }
	var objs []entry
	for it := m.objects.Iterator(); !it.Done(); {
		h, t, _ := it.Next()
		objs = append(objs, entry{h.String(), t.String()})
	}
	sort.Slice(objs, func(i, j int) bool { return objs[i].k < objs[j].k })

	var refs []entry
	for it := m.refs.Iterator(); !it.Done(); {
		v, hs, _ := it.Next()
		refs = append(refs, entry{v, hs.String()})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].k < refs[j].k })

	var sb strings.Builder
	sb.WriteString("{")
	for i, e := range append(refs, objs...) {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s ↦ %s", e.k, e.v)
	}
	sb.WriteString("}")
	return sb.String()
}

// Package memory implements the provenance model of the analysis: abstract
// memory objects identified by allocation site, with a three-state
// allocation tag tracked per object and a may-points-to binding per
// reference variable.
package memory

import (
	"sort"
	"strconv"
	"strings"

	"github.com/benbjohnson/immutable"

	"github.com/kestrel-analysis/kestrel/ir"
	"github.com/kestrel-analysis/kestrel/utils"
)

// Handle identifies an abstract memory object by its allocation site and an
// iteration tag. Objects allocated at the same site in distinct (bounded)
// loop iterations are distinct; handles are never reused after a free.
type Handle struct {
	Site ir.Point
	Iter int
}

func (h Handle) String() string {
	if h.Iter == 0 {
		return "obj(" + h.Site.String() + ")"
	}
	return "obj(" + h.Site.String() + "#" + strconv.Itoa(h.Iter) + ")"
}

// Hash makes handles usable as keys of immutable maps.
func (h Handle) Hash() uint32 {
	return utils.HashCombine(h.Site.Hash(), uint32(h.Iter))
}

// Equal checks handle equality.
func (h Handle) Equal(o Handle) bool {
	return h == o
}

func (h Handle) less(o Handle) bool {
	if h.Site != o.Site {
		return h.Site.Less(o.Site)
	}
	return h.Iter < o.Iter
}

// HandleSet is an immutable set of handles, the target of a may-points-to
// binding.
type HandleSet struct {
	handles *immutable.Map[Handle, struct{}]
}

// NewHandleSet creates a set of the given handles.
func NewHandleSet(hs ...Handle) HandleSet {
	set := HandleSet{handles: utils.NewImmMap[Handle, struct{}]()}
	for _, h := range hs {
		set.handles = set.handles.Set(h, struct{}{})
	}
	return set
}

// Add includes a handle in the set.
func (s HandleSet) Add(h Handle) HandleSet {
	return HandleSet{handles: s.set().Set(h, struct{}{})}
}

// Union combines two sets.
func (s HandleSet) Union(o HandleSet) HandleSet {
	a, b := s.set(), o.set()
	if a.Len() < b.Len() {
		a, b = b, a
	}
	for it := b.Iterator(); !it.Done(); {
		h, _, _ := it.Next()
		a = a.Set(h, struct{}{})
	}
	return HandleSet{handles: a}
}

// Contains checks handle membership.
func (s HandleSet) Contains(h Handle) bool {
	_, found := s.set().Get(h)
	return found
}

// Size returns the number of handles in the set.
func (s HandleSet) Size() int {
	return s.set().Len()
}

// Empty checks whether the set has no handles.
func (s HandleSet) Empty() bool {
	return s.Size() == 0
}

// ForEach visits every handle in the set in unspecified order.
func (s HandleSet) ForEach(do func(Handle)) {
	for it := s.set().Iterator(); !it.Done(); {
		h, _, _ := it.Next()
		do(h)
	}
}

// Subset checks whether every handle of s is in o.
func (s HandleSet) Subset(o HandleSet) bool {
	res := true
	s.ForEach(func(h Handle) {
		res = res && o.Contains(h)
	})
	return res
}

// Eq checks set equality.
func (s HandleSet) Eq(o HandleSet) bool {
	return s.Size() == o.Size() && s.Subset(o)
}

// Sorted returns the handles in the stable site ordering.
func (s HandleSet) Sorted() []Handle {
	res := make([]Handle, 0, s.Size())
	s.ForEach(func(h Handle) {
		res = append(res, h)
	})
	sort.Slice(res, func(i, j int) bool {
		return res[i].less(res[j])
	})
	return res
}

func (s HandleSet) String() string {
	strs := []string{}
	for _, h := range s.Sorted() {
		strs = append(strs, h.String())
	}
	return "{" + strings.Join(strs, ", ") + "}"
}

func (s HandleSet) set() *immutable.Map[Handle, struct{}] {
	if s.handles == nil {
		return utils.NewImmMap[Handle, struct{}]()
	}
	return s.handles
}

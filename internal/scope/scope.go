// Package scope implements the lexical frame chain: an insertion-ordered
// mapping from name to value handle, linked to a parent frame for lookup.
package scope

import "github.com/oxhq/zenlang/internal/value"

// binding is one (name, value) pair in insertion order within a frame.
type binding struct {
	name string
	val  *value.Value
}

// Scope is one frame in the chain. A function invocation pushes a new
// Scope whose Parent is the function's captured scope (lexical capture),
// never the caller's active scope.
type Scope struct {
	Parent   *Scope
	bindings []binding

	// pinned marks a frame captured by a closure: it must outlive the
	// invocation that created it, so Release leaves it intact.
	pinned bool
}

// New returns a fresh, empty frame with the given parent (nil for the
// global frame).
func New(parent *Scope) *Scope {
	return &Scope{Parent: parent}
}

// Define binds name in this frame, overwriting any existing binding in
// this frame (not a parent). The caller's reference to val is transferred
// in.
func (s *Scope) Define(name string, val *value.Value) {
	for i, b := range s.bindings {
		if b.name == name {
			value.Unref(s.bindings[i].val)
			s.bindings[i].val = val
			return
		}
	}
	s.bindings = append(s.bindings, binding{name: name, val: val})
}

// Get looks up name, walking toward the root frame. Reports false if no
// frame in the chain binds it.
func (s *Scope) Get(name string) (*value.Value, bool) {
	for f := s; f != nil; f = f.Parent {
		for _, b := range f.bindings {
			if b.name == name {
				return b.val, true
			}
		}
	}
	return nil, false
}

// Set rebinds name in the innermost frame that already defines it (walking
// toward the root), overwriting the existing binding. If no frame defines
// it, Set defines it in this frame instead. The caller's reference to val is
// transferred in. Returns true if an existing binding was found and
// rebound, false if a new one was created here.
func (s *Scope) Set(name string, val *value.Value) bool {
	for f := s; f != nil; f = f.Parent {
		for i, b := range f.bindings {
			if b.name == name {
				value.Unref(f.bindings[i].val)
				f.bindings[i].val = val
				return true
			}
		}
	}
	s.Define(name, val)
	return false
}

// Has reports whether name is bound anywhere in the chain.
func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Pin marks this frame and every ancestor as captured by a closure, so
// the whole lexical chain survives the invocations that created it:
// Release skips pinned frames, and nothing unpins them.
func (s *Scope) Pin() {
	for f := s; f != nil; f = f.Parent {
		f.pinned = true
	}
}

// Release unrefs every binding owned directly by this frame (not parents).
// Called when the function invocation or block that owns this frame
// completes. A frame pinned by a closure capture is left intact.
func (s *Scope) Release() {
	if s.pinned {
		return
	}
	for _, b := range s.bindings {
		value.Unref(b.val)
	}
	s.bindings = nil
}

package screen

import (
	"github.com/xkilldash9x/droidpilot/api/schemas"
)

// Snapshot is a published ScreenState together with its element lookup table.
// Both are immutable after NewSnapshot returns, so readers never need a lock.
type Snapshot struct {
	State schemas.ScreenState
	index map[string]schemas.UIElement
}

// NewSnapshot indexes every element of state by ID, walking at most
// schemas.MaxTreeDepth levels. When IDs repeat, the first element in
// depth-first order wins, matching FindByID. The Android accessibility
// service cache this replaces kept the last one instead.
func NewSnapshot(state schemas.ScreenState) *Snapshot {
	s := &Snapshot{State: state, index: make(map[string]schemas.UIElement)}
	Walk(state.Elements, func(el schemas.UIElement, _ int) bool {
		if el.ID == "" {
			return true
		}
		if _, exists := s.index[el.ID]; !exists {
			s.index[el.ID] = el
		}
		return true
	})
	return s
}

// Lookup finds an element by ID.
func (s *Snapshot) Lookup(id string) (schemas.UIElement, bool) {
	if s == nil {
		return schemas.UIElement{}, false
	}
	el, ok := s.index[id]
	return el, ok
}

// Len is the number of distinct element IDs.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.index)
}

// Walk visits elements depth-first in document order. visit receives the
// element and its depth; returning false stops the walk.
func Walk(elements []schemas.UIElement, visit func(el schemas.UIElement, depth int) bool) {
	walk(elements, 0, visit)
}

func walk(elements []schemas.UIElement, depth int, visit func(schemas.UIElement, int) bool) bool {
	if depth >= schemas.MaxTreeDepth {
		return true
	}
	for _, el := range elements {
		if !visit(el, depth) {
			return false
		}
		if !walk(el.Children, depth+1, visit) {
			return false
		}
	}
	return true
}

// FindByID returns the first element whose ID equals id.
func FindByID(elements []schemas.UIElement, id string) (schemas.UIElement, bool) {
	return findFirst(elements, func(el schemas.UIElement) bool { return el.ID == id })
}

// FindEditable returns the first element that is editable and focusable.
func FindEditable(elements []schemas.UIElement) (schemas.UIElement, bool) {
	return findFirst(elements, func(el schemas.UIElement) bool { return el.Editable && el.Focusable })
}

func findFirst(elements []schemas.UIElement, match func(schemas.UIElement) bool) (schemas.UIElement, bool) {
	var found schemas.UIElement
	var ok bool
	Walk(elements, func(el schemas.UIElement, _ int) bool {
		if match(el) {
			found, ok = el, true
			return false
		}
		return true
	})
	return found, ok
}

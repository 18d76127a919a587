package rules

import (
	"errors"
)

// ErrStackEmpty is returned when popping an empty resolution stack.
var ErrStackEmpty = errors.New("stack empty")

// CardStack is the shared resolution stack of played card ids. The last
// element is the top and resolves first.
type CardStack []uint64

// Push adds a card to the top of the stack.
func (cs *CardStack) Push(id uint64) {
	*cs = append(*cs, id)
}

// Pop removes the top card.
func (cs *CardStack) Pop() (uint64, error) {
	if len(*cs) == 0 {
		return 0, ErrStackEmpty
	}
	idx := len(*cs) - 1
	id := (*cs)[idx]
	*cs = (*cs)[:idx]
	return id, nil
}

// Remove deletes a card from anywhere in the stack.
func (cs *CardStack) Remove(id uint64) bool {
	for idx := len(*cs) - 1; idx >= 0; idx-- {
		if (*cs)[idx] == id {
			*cs = append((*cs)[:idx], (*cs)[idx+1:]...)
			return true
		}
	}
	return false
}

// Peek returns the top card without removing it.
func (cs CardStack) Peek() (uint64, bool) {
	if len(cs) == 0 {
		return 0, false
	}
	return cs[len(cs)-1], true
}

// Below returns the card directly under id.
func (cs CardStack) Below(id uint64) (uint64, bool) {
	for idx := len(cs) - 1; idx > 0; idx-- {
		if cs[idx] == id {
			return cs[idx-1], true
		}
	}
	return 0, false
}

// Contains reports whether id is on the stack.
func (cs CardStack) Contains(id uint64) bool {
	for _, c := range cs {
		if c == id {
			return true
		}
	}
	return false
}

// List returns a copy of the stack (topmost last).
func (cs CardStack) List() []uint64 {
	cpy := make([]uint64, len(cs))
	copy(cpy, cs)
	return cpy
}

// IsEmpty returns whether the stack is empty.
func (cs CardStack) IsEmpty() bool {
	return len(cs) == 0
}

package game

// ID identifies any entity within one game. Zero is never a real entity.
type ID = uint64

// IDAllocator hands out identifiers for one game. Ids are unique across
// every entity kind of that game and are never reused.
type IDAllocator struct {
	NextID ID
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() IDAllocator {
	return IDAllocator{NextID: 1}
}

// Allocate returns a fresh id.
func (a *IDAllocator) Allocate() ID {
	if a.NextID == 0 {
		a.NextID = 1
	}
	id := a.NextID
	a.NextID++
	return id
}

// Observe records an id allocated elsewhere so it is never handed out again.
func (a *IDAllocator) Observe(id ID) {
	if id >= a.NextID {
		a.NextID = id + 1
	}
}

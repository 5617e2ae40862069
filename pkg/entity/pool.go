package entity

// Pool is a dense, insertion-ordered collection of entities keyed by ID.
// Iteration order is stable, which keeps pairwise passes deterministic.
type Pool[T Entity] struct {
	items []T
	index map[ID]int
}

// NewPool creates an empty pool.
func NewPool[T Entity]() *Pool[T] {
	return &Pool[T]{index: make(map[ID]int)}
}

// Add appends an entity. Adding an ID twice replaces the stored entity.
func (p *Pool[T]) Add(item T) {
	if i, ok := p.index[item.GetID()]; ok {
		p.items[i] = item
		return
	}
	p.index[item.GetID()] = len(p.items)
	p.items = append(p.items, item)
}

// Get looks up an entity by ID.
func (p *Pool[T]) Get(id ID) (T, bool) {
	i, ok := p.index[id]
	if !ok {
		var zero T
		return zero, false
	}
	return p.items[i], true
}

// Len returns the number of stored entities.
func (p *Pool[T]) Len() int {
	return len(p.items)
}

// All returns the entities in insertion order. The slice is owned by the pool
// and is only valid until the next mutation.
func (p *Pool[T]) All() []T {
	return p.items
}

// Remove deletes the entity with the given ID, keeping the order of the rest.
func (p *Pool[T]) Remove(id ID) bool {
	removed := p.RemoveIf(func(item T) bool { return item.GetID() == id })
	return len(removed) > 0
}

// RemoveIf deletes every entity matching pred and returns them.
func (p *Pool[T]) RemoveIf(pred func(T) bool) []T {
	var removed []T
	kept := p.items[:0]
	for _, item := range p.items {
		if pred(item) {
			removed = append(removed, item)
			delete(p.index, item.GetID())
			continue
		}
		kept = append(kept, item)
	}
	// drop references held past the new length
	for i := len(kept); i < len(p.items); i++ {
		var zero T
		p.items[i] = zero
	}
	p.items = kept
	if len(removed) > 0 {
		for i, item := range p.items {
			p.index[item.GetID()] = i
		}
	}
	return removed
}

package archon

// EntityOperation is one deferred mutation applied to a World once it
// is safe to do so (the world is fully unlocked).
type EntityOperation interface {
	Apply(*World) error
}

// entityOperationsQueue holds operations enqueued while the world was
// locked by an active iteration.
type entityOperationsQueue struct {
	operations []EntityOperation
}

// Enqueue adds an operation to the queue.
func (q *entityOperationsQueue) Enqueue(op EntityOperation) {
	q.operations = append(q.operations, op)
}

// ProcessAll applies every queued operation to w and clears the queue.
// It is a no-op while w is still locked, so operations enqueued during
// a nested iteration wait for the outermost Unlock.
func (q *entityOperationsQueue) ProcessAll(w *World) error {
	if w.Locked() {
		return nil
	}
	ops := q.operations
	q.operations = nil
	for _, op := range ops {
		if err := op.Apply(w); err != nil {
			return err
		}
	}
	return nil
}

// NewEntityOperation creates multiple entities sharing one component
// set.
type NewEntityOperation struct {
	count      int
	components []Component
}

// Apply runs World.NewEntities.
func (op NewEntityOperation) Apply(w *World) error {
	_, err := w.NewEntities(op.count, op.components...)
	return err
}

// DestroyEntityOperation destroys one entity, skipped silently if it
// was already destroyed by the time the queue is flushed.
type DestroyEntityOperation struct {
	id EntityID
}

// Apply runs World.DestroyEntity.
func (op DestroyEntityOperation) Apply(w *World) error {
	if !w.directory.Alive(op.id) {
		return nil
	}
	return w.DestroyEntity(op.id)
}

// AddComponentOperation adds a component to one entity, skipped
// silently if the entity no longer exists.
type AddComponentOperation struct {
	id        EntityID
	component Component
	value     any
}

// Apply runs World.AddComponent.
func (op AddComponentOperation) Apply(w *World) error {
	if !w.directory.Alive(op.id) {
		return nil
	}
	return w.AddComponent(op.id, op.component, op.value)
}

// RemoveComponentOperation removes a component from one entity,
// skipped silently if the entity no longer exists.
type RemoveComponentOperation struct {
	id        EntityID
	component Component
}

// Apply runs World.RemoveComponent.
func (op RemoveComponentOperation) Apply(w *World) error {
	if !w.directory.Alive(op.id) {
		return nil
	}
	return w.RemoveComponent(op.id, op.component)
}

// CommandBuffer is an opt-in, ordered alternative to calling
// World.Enqueue* directly: a system collects every change it wants to
// make during one pass over a query into a single buffer, then flushes
// it once iteration completes. An archon EntityID is stable across
// every archetype move a flush might cause, so a later command
// referencing the same id always reaches the same entity without any
// resolution step.
type CommandBuffer struct {
	spawns  []NewEntityOperation
	deletes []EntityID
	adds    []AddComponentOperation
	removes []RemoveComponentOperation
	defers  []func(*World) error
}

// NewCommandBuffer creates an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Spawn queues creation of count entities sharing components.
func (cb *CommandBuffer) Spawn(count int, components ...Component) {
	cb.spawns = append(cb.spawns, NewEntityOperation{count: count, components: components})
}

// Delete queues destruction of id.
func (cb *CommandBuffer) Delete(id EntityID) {
	cb.deletes = append(cb.deletes, id)
}

// AddComponent queues adding c with value to id.
func (cb *CommandBuffer) AddComponent(id EntityID, c Component, value any) {
	cb.adds = append(cb.adds, AddComponentOperation{id: id, component: c, value: value})
}

// RemoveComponent queues removing c from id.
func (cb *CommandBuffer) RemoveComponent(id EntityID, c Component) {
	cb.removes = append(cb.removes, RemoveComponentOperation{id: id, component: c})
}

// Defer queues an arbitrary function to run against the world during
// Flush, after every other queued command.
func (cb *CommandBuffer) Defer(fn func(*World) error) {
	cb.defers = append(cb.defers, fn)
}

// Flush applies every queued command to w in order (deletes, removes,
// adds, spawns, defers) and resets the buffer. An entity deleted
// earlier in the same flush causes later commands against it to be
// skipped rather than failing with StaleEntityError.
func (cb *CommandBuffer) Flush(w *World) error {
	deleted := make(map[EntityID]bool, len(cb.deletes))

	for _, id := range cb.deletes {
		if !w.directory.Alive(id) {
			continue
		}
		if err := w.DestroyEntity(id); err != nil {
			return err
		}
		deleted[id] = true
	}

	for _, op := range cb.removes {
		if deleted[op.id] {
			continue
		}
		if err := op.Apply(w); err != nil {
			return err
		}
	}

	for _, op := range cb.adds {
		if deleted[op.id] {
			continue
		}
		if err := op.Apply(w); err != nil {
			return err
		}
	}

	for _, op := range cb.spawns {
		if err := op.Apply(w); err != nil {
			return err
		}
	}

	for _, fn := range cb.defers {
		if err := fn(w); err != nil {
			return err
		}
	}

	cb.spawns = cb.spawns[:0]
	cb.deletes = cb.deletes[:0]
	cb.adds = cb.adds[:0]
	cb.removes = cb.removes[:0]
	cb.defers = cb.defers[:0]
	return nil
}

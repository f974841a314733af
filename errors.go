package archon

import "fmt"

// StaleEntityError reports that an EntityID's generation no longer
// matches the directory's current record for its index — the caller
// is holding a handle to an entity that has since been destroyed (and
// possibly recycled into a different incarnation).
type StaleEntityError struct {
	ID EntityID
}

func (e StaleEntityError) Error() string {
	return fmt.Sprintf("archon: entity %d (generation %d) is not alive", e.ID.Index(), e.ID.Generation())
}

// UnknownComponentTypeError reports a name that resolves to neither a
// registered static component nor a defined dynamic schema.
type UnknownComponentTypeError struct {
	Name string
}

func (e UnknownComponentTypeError) Error() string {
	return fmt.Sprintf("archon: unknown component type %q", e.Name)
}

// DuplicateNameError reports a dynamic component definition colliding
// with an existing name.
type DuplicateNameError struct {
	Name string
}

func (e DuplicateNameError) Error() string {
	return fmt.Sprintf("archon: component name %q already defined", e.Name)
}

// TypeMismatchError reports a payload that cannot be coerced into a
// component's shape.
type TypeMismatchError struct {
	TypeName string
	Cause    error
}

func (e TypeMismatchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("archon: payload does not match component %q: %v", e.TypeName, e.Cause)
	}
	return fmt.Sprintf("archon: payload does not match component %q", e.TypeName)
}

func (e TypeMismatchError) Unwrap() error { return e.Cause }

// ConcurrentMutationError reports a mutation attempted against rows
// currently locked by an active query iteration.
type ConcurrentMutationError struct {
	Op string
}

func (e ConcurrentMutationError) Error() string {
	return fmt.Sprintf("archon: %s attempted while storage is locked by an active iteration", e.Op)
}

// CapacityExhaustedError reports that an id space or type space is
// saturated.
type CapacityExhaustedError struct {
	Resource string
}

func (e CapacityExhaustedError) Error() string {
	return fmt.Sprintf("archon: %s capacity exhausted", e.Resource)
}

// InvalidArgumentError reports an out-of-range or otherwise malformed
// caller input, e.g. a negative delta or a step count above the
// driver's bound.
type InvalidArgumentError struct {
	Arg    string
	Reason string
}

func (e InvalidArgumentError) Error() string {
	return fmt.Sprintf("archon: invalid argument %s: %s", e.Arg, e.Reason)
}

// EntityRelationError reports an attempt to violate a relationship
// invariant, such as a self-loop edge.
type EntityRelationError struct {
	Reason string
}

func (e EntityRelationError) Error() string {
	return fmt.Sprintf("archon: invalid relationship: %s", e.Reason)
}

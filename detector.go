package keel

import "slices"

// CycleDetector tracks the names currently being instantiated and reports a
// circular dependency when one of them is requested again.
//
// The stack is an ordered set: a name appears at most once. The zero value is
// an empty detector. It is not safe for concurrent use; the container
// serialises resolution trees around it.
type CycleDetector struct {
	stack []string
	index map[string]struct{}
}

// NewCycleDetector creates an empty detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		index: make(map[string]struct{}),
	}
}

// Push adds name to the stack. Pushing a name already present is a no-op.
func (d *CycleDetector) Push(name string) {
	if _, ok := d.index[name]; ok {
		return
	}

	if d.index == nil {
		d.index = make(map[string]struct{})
	}

	d.index[name] = struct{}{}
	d.stack = append(d.stack, name)
}

// Check returns a circular dependency error when name is already on the
// stack. The error chain is the stack in insertion order followed by name.
func (d *CycleDetector) Check(name string) error {
	if _, ok := d.index[name]; !ok {
		return nil
	}

	chain := make([]string, 0, len(d.stack)+1)
	chain = append(chain, d.stack...)
	chain = append(chain, name)

	return ErrCircularDependency(chain)
}

// Pop removes name from the stack. Popping an absent name is a no-op.
func (d *CycleDetector) Pop(name string) {
	if _, ok := d.index[name]; !ok {
		return
	}

	delete(d.index, name)

	if i := slices.Index(d.stack, name); i >= 0 {
		d.stack = slices.Delete(d.stack, i, i+1)
	}
}

// Clear empties the stack.
func (d *CycleDetector) Clear() {
	d.stack = nil
	d.index = make(map[string]struct{})
}

// IsEmpty reports whether nothing is being resolved.
func (d *CycleDetector) IsEmpty() bool {
	return len(d.stack) == 0
}

// Stack returns a copy of the names currently on the stack.
func (d *CycleDetector) Stack() []string {
	return slices.Clone(d.stack)
}

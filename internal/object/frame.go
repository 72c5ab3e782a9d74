package object

import (
	"fmt"
	"log/slog"
	"sync"
)

// Frame holds the local bindings of one invocation (or of the top-level
// program). Frames are flat: there is no pointer to the caller's frame or
// any enclosing scope, so only the current frame and the heap are visible
// during evaluation. A frame is exclusively owned by its invocation and is
// discarded on return, so no locking is needed.
type Frame struct {
	vars map[string]Value
}

func NewFrame() *Frame {
	return &Frame{vars: make(map[string]Value)}
}

// Get returns a deep copy of the binding, or NULL when the name is absent.
// Absent variables read as null; lookups never fail. Copying on read is what
// gives arrays and objects their value semantics.
func (f *Frame) Get(name string) Value {
	if v, ok := f.vars[name]; ok {
		return Clone(v)
	}
	return NULL
}

// Has reports whether the name is bound without copying the value.
func (f *Frame) Has(name string) bool {
	_, ok := f.vars[name]
	return ok
}

func (f *Frame) Set(name string, v Value) {
	f.vars[name] = v
}

// SetIndex descends the stored value under name through the index chain and
// overwrites the target slot in place. Indices must already be validated as
// non-negative integers by the caller.
func (f *Frame) SetIndex(name string, indices []int, v Value) error {
	cur, ok := f.vars[name]
	if !ok {
		return fmt.Errorf("'%s' is not an array", name)
	}

	for n, idx := range indices {
		arr, ok := cur.(*Array)
		if !ok {
			return fmt.Errorf("type %s isn't indexable", cur.Type())
		}
		if idx >= len(arr.Elements) {
			return fmt.Errorf("index %d out of bounds", idx)
		}
		if n == len(indices)-1 {
			arr.Elements[idx] = v
			return nil
		}
		cur = arr.Elements[idx]
	}

	return fmt.Errorf("empty index chain for '%s'", name)
}

// SetProperty overwrites a property on the object stored under name.
func (f *Frame) SetProperty(name, prop string, v Value) error {
	stored, ok := f.vars[name]
	if !ok {
		return fmt.Errorf("'%s' is not an object", name)
	}
	obj, ok := stored.(*Object)
	if !ok {
		return fmt.Errorf("'%s' is not an object", name)
	}
	obj.Members[prop] = v
	return nil
}

// Heap is the process-lifetime store for named functions and class
// templates. Entries are created as definitions are walked and persist for
// the remainder of the run; redefining a name overwrites its entry. The
// single-threaded evaluator never contends on the mutex, but a host that
// embeds the runtime from several goroutines gets serialized definition.
type Heap struct {
	mu    sync.RWMutex
	store map[string]Value
}

func NewHeap() *Heap {
	return &Heap{store: make(map[string]Value)}
}

func (h *Heap) Define(name string, v Value) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.store[name]; exists {
		slog.Debug("redefining heap entry",
			slog.String("name", name),
			slog.Any("type", v.Type()))
	}
	h.store[name] = v
}

func (h *Heap) Get(name string) (Value, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	v, ok := h.store[name]
	return v, ok
}

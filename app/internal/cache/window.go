package cache

// Window is a fixed-capacity key/value map that keeps insertion order and
// evicts the least-recently-inserted key once full. It backs the in-memory
// tail of each stat resolution, so its capacity must match that resolution's
// retention horizon.
//
// Not safe for concurrent use; the owning aggregator serializes access.
type Window struct {
	capacity int
	order    []int64
	items    map[int64]any
}

// NewWindow creates a window holding at most capacity entries.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		items:    make(map[int64]any, capacity),
	}
}

// Push inserts or refreshes a key. An existing key moves to the most-recent
// position; a new key evicts the oldest entry when the window is full.
func (w *Window) Push(key int64, value any) {
	if _, ok := w.items[key]; ok {
		for i, k := range w.order {
			if k == key {
				w.order = append(w.order[:i], w.order[i+1:]...)
				break
			}
		}
		w.order = append(w.order, key)
		w.items[key] = value
		return
	}

	if len(w.order) >= w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.items, oldest)
	}
	w.order = append(w.order, key)
	w.items[key] = value
}

// Get returns the value for key, or def when absent.
func (w *Window) Get(key int64, def any) any {
	if v, ok := w.items[key]; ok {
		return v
	}
	return def
}

// Has reports whether key is present.
func (w *Window) Has(key int64) bool {
	_, ok := w.items[key]
	return ok
}

// Len returns the number of entries.
func (w *Window) Len() int { return len(w.order) }

// Capacity returns the maximum number of entries.
func (w *Window) Capacity() int { return w.capacity }

// Keys returns the keys in insertion order, oldest first.
func (w *Window) Keys() []int64 {
	out := make([]int64, len(w.order))
	copy(out, w.order)
	return out
}

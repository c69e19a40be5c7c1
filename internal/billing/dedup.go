package billing

import "sync"

// DedupWindow remembers recently applied provider event IDs so an
// at-least-once redelivery can be acknowledged without reapplication. The
// window is bounded: once full, the oldest entry is evicted FIFO. Eviction
// is safe because an evicted duplicate is still caught by the timestamp
// staleness check in the state machine.
type DedupWindow struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	head  int
	size  int
}

func NewDedupWindow(size int) *DedupWindow {
	if size < 1 {
		size = 1
	}
	return &DedupWindow{
		seen:  make(map[string]struct{}, size),
		order: make([]string, size),
		size:  size,
	}
}

// Seen reports whether id is currently in the window.
func (w *DedupWindow) Seen(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[id]
	return ok
}

// Add records id, evicting the oldest entry if the window is full.
// Adding an id already present is a no-op.
func (w *DedupWindow) Add(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[id]; ok {
		return
	}

	if evicted := w.order[w.head]; evicted != "" {
		delete(w.seen, evicted)
	}
	w.order[w.head] = id
	w.head = (w.head + 1) % w.size
	w.seen[id] = struct{}{}
}

// Len returns the number of IDs currently held.
func (w *DedupWindow) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

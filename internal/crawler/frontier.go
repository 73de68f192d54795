package crawler

// entry is one unit of pending work: a normalized URL and its BFS depth.
type entry struct {
	url   string
	depth int
}

// frontier is a FIFO queue of entries. Children are always appended, so
// popping from the head yields breadth-first order.
//
// The backing slice is compacted once the consumed prefix grows past half
// of its capacity, so long crawls do not hold on to popped entries.
type frontier struct {
	items []entry
	head  int
}

func newFrontier() *frontier {
	return &frontier{items: make([]entry, 0, 64)}
}

// push appends e to the tail.
func (f *frontier) push(e entry) {
	f.items = append(f.items, e)
}

// pop removes and returns the head. ok is false when empty.
func (f *frontier) pop() (e entry, ok bool) {
	if f.head >= len(f.items) {
		return entry{}, false
	}
	e = f.items[f.head]
	f.items[f.head] = entry{}
	f.head++

	if f.head > cap(f.items)/2 {
		n := copy(f.items, f.items[f.head:])
		f.items = f.items[:n]
		f.head = 0
	}
	return e, true
}

// len returns the number of pending entries.
func (f *frontier) len() int {
	return len(f.items) - f.head
}

// reset drops all pending entries.
func (f *frontier) reset() {
	f.items = f.items[:0]
	f.head = 0
}

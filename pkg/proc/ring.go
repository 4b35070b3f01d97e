package proc

// LineBuffer is a fixed-capacity ring buffer of output lines. Once the
// capacity is exceeded Push silently drops the oldest line, so the buffer
// always holds the most recent lines in arrival order.
//
// LineBuffer is not safe for concurrent use; the runner owns it from a
// single reader goroutine.
type LineBuffer struct {
	lines []string
	head  int
	size  int
}

// NewLineBuffer returns a buffer retaining at most capacity lines.
func NewLineBuffer(capacity int) *LineBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &LineBuffer{lines: make([]string, capacity)}
}

// Push appends a line, evicting the oldest one when the buffer is full.
func (b *LineBuffer) Push(line string) {
	if b.size == len(b.lines) {
		b.lines[b.head] = line
		b.head = (b.head + 1) % len(b.lines)
		return
	}
	b.lines[(b.head+b.size)%len(b.lines)] = line
	b.size++
}

// Len reports the number of retained lines.
func (b *LineBuffer) Len() int { return b.size }

// Snapshot returns the retained lines, oldest first.
func (b *LineBuffer) Snapshot() []string {
	out := make([]string, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.lines[(b.head+i)%len(b.lines)]
	}
	return out
}

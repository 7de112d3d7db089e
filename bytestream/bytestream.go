// Package bytestream implements a bounded producer/consumer byte buffer
// with close and sticky-error semantics. It is shared between a writer
// (the producer) and a reader (the consumer) side, modeled here as a
// single owned buffer with two operation groups rather than two separate
// owning references.
package bytestream

// ByteStream is a fixed-capacity FIFO byte buffer. The zero value is not
// usable; construct with New.
type ByteStream struct {
	capacity int
	buf      []byte

	pushed int64 // P: total bytes ever pushed
	popped int64 // R: total bytes ever popped

	closed  bool
	errored bool
}

// New returns an empty, open ByteStream with the given capacity in bytes.
func New(capacity int) *ByteStream {
	return &ByteStream{capacity: capacity}
}

// Push accepts at most AvailableCapacity() bytes of data (a prefix of
// data); any remainder is dropped silently. A no-op once the stream is
// closed.
func (b *ByteStream) Push(data []byte) {
	if b.closed {
		return
	}
	room := b.AvailableCapacity()
	if room <= 0 {
		return
	}
	if len(data) > room {
		data = data[:room]
	}
	b.buf = append(b.buf, data...)
	b.pushed += int64(len(data))
}

// Close marks the stream closed; no further pushes are accepted.
func (b *ByteStream) Close() {
	b.closed = true
}

// SetError sets the sticky error flag.
func (b *ByteStream) SetError() {
	b.errored = true
}

// Peek returns a view of the currently buffered bytes. The returned slice
// is only valid until the next call to Pop or Push.
func (b *ByteStream) Peek() []byte {
	return b.buf
}

// Pop discards min(n, BytesBuffered()) buffered bytes from the front of
// the stream.
func (b *ByteStream) Pop(n int) {
	if n > len(b.buf) {
		n = len(b.buf)
	}
	if n <= 0 {
		return
	}
	b.buf = b.buf[n:]
	b.popped += int64(n)
}

// IsClosed reports whether Close has been called.
func (b *ByteStream) IsClosed() bool { return b.closed }

// AvailableCapacity returns how many more bytes can currently be pushed.
func (b *ByteStream) AvailableCapacity() int {
	return b.capacity - len(b.buf)
}

// BytesPushed returns the total number of bytes ever pushed (P).
func (b *ByteStream) BytesPushed() uint64 { return uint64(b.pushed) }

// BytesPopped returns the total number of bytes ever popped (R).
func (b *ByteStream) BytesPopped() uint64 { return uint64(b.popped) }

// BytesBuffered returns the number of bytes currently held (B = P - R).
func (b *ByteStream) BytesBuffered() int { return len(b.buf) }

// IsFinished reports whether the stream is closed and fully drained.
func (b *ByteStream) IsFinished() bool {
	return b.closed && len(b.buf) == 0
}

// HasError reports whether the sticky error flag is set.
func (b *ByteStream) HasError() bool { return b.errored }

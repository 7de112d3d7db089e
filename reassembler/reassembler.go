// Package reassembler orders out-of-order byte substrings into a
// bytestream.ByteStream, delivering only contiguous prefixes in strict
// ascending index order.
package reassembler

import (
	"sort"

	"github.com/minnowstack/minnow/bytestream"
)

// interval is a half-open [start, end) byte range held in the pending set,
// carrying the bytes for that range. Pending intervals are kept sorted and
// non-overlapping; merge keeps them that way after every insert.
type interval struct {
	start int64
	data  []byte
}

func (iv interval) end() int64 { return iv.start + int64(len(iv.data)) }

// Reassembler owns an output ByteStream and assembles the contiguous
// prefix of bytes seen so far into it.
type Reassembler struct {
	output *bytestream.ByteStream

	nextIndex int64 // E: next expected absolute stream index
	pending   []interval

	haveLast bool
	lastIdx  int64 // F: past-last index, once known
}

// New returns a Reassembler that writes into output.
func New(output *bytestream.ByteStream) *Reassembler {
	return &Reassembler{output: output}
}

// Insert processes a substring of the stream starting at firstIndex,
// optionally marked as containing the final byte of the stream.
func (r *Reassembler) Insert(firstIndex int64, data []byte, isLast bool) {
	lastEnd := firstIndex + int64(len(data))

	if isLast {
		r.haveLast = true
		r.lastIdx = lastEnd
		if r.nextIndex == r.lastIdx {
			r.output.Close()
			return
		}
	}

	windowEnd := r.nextIndex + int64(r.output.AvailableCapacity())

	// Fully behind or fully beyond the acceptable window: discard.
	if lastEnd <= r.nextIndex || firstIndex >= windowEnd {
		return
	}

	// Trim left.
	if firstIndex < r.nextIndex {
		data = data[r.nextIndex-firstIndex:]
		firstIndex = r.nextIndex
	}

	// Trim right.
	if firstIndex+int64(len(data)) > windowEnd {
		data = data[:windowEnd-firstIndex]
	}

	if len(data) > 0 {
		r.store(interval{start: firstIndex, data: data})
	}

	r.emitReady()

	if r.haveLast && r.nextIndex == r.lastIdx {
		r.output.Close()
	}
}

// store inserts iv into the pending set, merging with any overlapping or
// adjacent intervals. An index already stored is never overwritten: only
// the bytes from the first write covering it survive.
func (r *Reassembler) store(iv interval) {
	i := sort.Search(len(r.pending), func(i int) bool {
		return r.pending[i].start >= iv.start
	})

	merged := iv
	insertAt := i

	// Merge with the interval immediately before, if it overlaps or
	// abuts, preserving its already-stored bytes for the overlap.
	if i > 0 && r.pending[i-1].end() >= merged.start {
		prev := r.pending[i-1]
		merged = mergeKeepingFirst(prev, merged)
		insertAt = i - 1
		r.pending = append(r.pending[:i-1], r.pending[i:]...)
		i = insertAt
	}

	// Merge with any following intervals now covered or abutted. Those
	// were stored earlier, so their bytes win over the overlap, even
	// though their start may fall after merged's.
	for i < len(r.pending) && r.pending[i].start <= merged.end() {
		merged = mergeKeepingFirst(r.pending[i], merged)
		r.pending = append(r.pending[:i], r.pending[i+1:]...)
	}

	r.pending = append(r.pending, interval{})
	copy(r.pending[insertAt+1:], r.pending[insertAt:])
	r.pending[insertAt] = merged
}

// mergeKeepingFirst merges two intervals known to overlap or abut. Bytes
// from first win over any overlapping bytes from second, since first was
// stored earlier; first and second may start in either order.
func mergeKeepingFirst(first, second interval) interval {
	start := first.start
	if second.start < start {
		start = second.start
	}
	end := first.end()
	if second.end() > end {
		end = second.end()
	}
	out := make([]byte, end-start)
	copy(out[second.start-start:], second.data)
	copy(out[first.start-start:], first.data)
	return interval{start: start, data: out}
}

// emitReady pushes the contiguous prefix starting at nextIndex, if any, to
// the output stream and advances nextIndex past it.
func (r *Reassembler) emitReady() {
	if len(r.pending) == 0 || r.pending[0].start != r.nextIndex {
		return
	}
	head := r.pending[0]
	r.pending = r.pending[1:]
	r.output.Push(head.data)
	r.nextIndex = head.end()
}

// BytesPending returns the number of currently stored, unemitted bytes.
func (r *Reassembler) BytesPending() int {
	n := 0
	for _, iv := range r.pending {
		n += len(iv.data)
	}
	return n
}

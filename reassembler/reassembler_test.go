package reassembler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minnowstack/minnow/bytestream"
	"github.com/minnowstack/minnow/reassembler"
)

func TestOutOfOrderAssembly(t *testing.T) {
	bs := bytestream.New(8)
	r := reassembler.New(bs)

	r.Insert(3, []byte("de"), false)
	r.Insert(0, []byte("abc"), false)
	r.Insert(5, []byte("fgh"), true)

	require.Equal(t, []byte("abcdefgh"), bs.Peek())
	require.True(t, bs.IsClosed())
	require.Equal(t, 0, r.BytesPending())
}

func TestDuplicateBytesMustAgreeFirstWins(t *testing.T) {
	bs := bytestream.New(8)
	r := reassembler.New(bs)

	r.Insert(0, []byte("ab"), false)
	// Overlaps [0,2); the original byte at index 0 must survive.
	r.Insert(0, []byte("XYZ"), false)

	r.Insert(0, nil, false) // no-op, exercising empty payload path
	require.Equal(t, []byte("abZ"), bs.Peek())
}

func TestDuplicateBytesMustAgreeFirstWinsOnFollowingMerge(t *testing.T) {
	bs := bytestream.New(10)
	r := reassembler.New(bs)

	// Stored first, at [5,10).
	r.Insert(5, []byte("OLDDD"), false)
	// Arrives second but starts earlier, spanning [0,8) and overlapping
	// the already-stored [5,10) interval: the old bytes at [5,8) must
	// survive, not the new ones.
	r.Insert(0, []byte("NEWNEWNE"), false)

	require.Equal(t, []byte("NEWNEOLDDD"), bs.Peek())
}

func TestDiscardsOutOfWindowData(t *testing.T) {
	bs := bytestream.New(4)
	r := reassembler.New(bs)

	// First byte index 10 is far beyond [0, 0+4).
	r.Insert(10, []byte("z"), false)
	require.Equal(t, 0, r.BytesPending())

	r.Insert(0, []byte("abcdef"), false)
	require.Equal(t, []byte("abcd"), bs.Peek(), "tail beyond capacity is trimmed")
}

func TestEmptyLastSubstringClosesImmediately(t *testing.T) {
	bs := bytestream.New(4)
	r := reassembler.New(bs)

	r.Insert(0, nil, true)
	require.True(t, bs.IsClosed())
	require.True(t, bs.IsFinished())
}

func TestFullyBehindIsDiscarded(t *testing.T) {
	bs := bytestream.New(8)
	r := reassembler.New(bs)

	r.Insert(0, []byte("ab"), false)
	require.Equal(t, []byte("ab"), bs.Peek())
	bs.Pop(2)

	// Now nextIndex is still 2 (reassembler tracks emitted count, not
	// consumer reads); re-inserting [0,2) is fully behind nextIndex.
	r.Insert(0, []byte("ab"), false)
	require.Equal(t, 0, r.BytesPending())
}

func TestCapacityFreedByReaderUnblocksLaterBytes(t *testing.T) {
	bs := bytestream.New(2)
	r := reassembler.New(bs)

	r.Insert(2, []byte("cd"), false) // beyond window [0,2), discarded
	require.Equal(t, 0, r.BytesPending())

	r.Insert(0, []byte("ab"), false)
	require.Equal(t, []byte("ab"), bs.Peek())
	bs.Pop(2)

	r.Insert(2, []byte("cd"), true)
	require.Equal(t, []byte("cd"), bs.Peek())
	require.True(t, bs.IsClosed())
}

package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlign8(t *testing.T) {
	tests := []struct {
		in, want int64
	}{
		{0, 0},
		{1, 8},
		{7, 8},
		{8, 8},
		{9, 16},
		{200, 200},
		{201, 208},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Align8(tt.in), "Align8(%d)", tt.in)
	}
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, int64(4096), AlignUp(1, 4096))
	assert.Equal(t, int64(4096), AlignUp(4096, 4096))
	assert.Equal(t, int64(8192), AlignUp(4097, 4096))
	assert.True(t, IsAligned(64))
	assert.False(t, IsAligned(65))
}

func TestBlockInitRoundTrip(t *testing.T) {
	mem := make([]byte, 256)
	b := At(mem, 64)
	b.Init(96, StateAllocated, 7, 0, NoBlock)

	assert.Equal(t, int64(96), b.Size())
	assert.Equal(t, StateAllocated, b.State())
	assert.Equal(t, uint16(7), b.Owner())
	assert.Equal(t, GuardMagic, b.Guard())
	assert.Equal(t, int64(0), b.Prev())
	assert.Equal(t, NoBlock, b.Next())
	assert.Equal(t, int64(64+HeaderSize+96), b.End())
	assert.Equal(t, Ptr(64+HeaderSize), b.Payload())
	assert.Len(t, b.Bytes(), 96)
	assert.Equal(t, 96, cap(b.Bytes()), "payload slice must not expose the next header")
}

func TestSetStateMaintainsGuard(t *testing.T) {
	mem := make([]byte, 128)
	b := At(mem, 0)
	b.Init(64, StateAllocated, 0, NoBlock, NoBlock)
	require.Equal(t, GuardMagic, b.Guard())

	b.SetState(StateFree)
	assert.Equal(t, uint32(0), b.Guard())
	assert.True(t, b.State().IsFree())

	b.SetState(StateQuick)
	assert.True(t, b.State().IsFree())
	assert.Equal(t, "quick", b.State().String())

	b.SetState(StateAllocated)
	assert.Equal(t, GuardMagic, b.Guard())
}

func TestHeaderOf(t *testing.T) {
	const brk = 1024

	off, err := HeaderOf(PayloadOf(128), brk)
	require.NoError(t, err)
	assert.Equal(t, int64(128), off)

	_, err = HeaderOf(Nil, brk)
	assert.ErrorIs(t, err, ErrNilPtr)

	_, err = HeaderOf(Ptr(HeaderSize+3), brk)
	assert.ErrorIs(t, err, ErrMisaligned)

	_, err = HeaderOf(Ptr(8), brk)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = HeaderOf(Ptr(brk), brk)
	assert.ErrorIs(t, err, ErrOutOfBounds)

	_, err = HeaderOf(Ptr(1<<63|0x40), brk)
	assert.ErrorIs(t, err, ErrOutOfBounds, "high bit must not wrap negative")

	_, err = HeaderOf(PayloadOf(0), 0)
	assert.ErrorIs(t, err, ErrOutOfBounds, "empty region holds no payloads")
}

func TestAdjacent(t *testing.T) {
	mem := make([]byte, 512)
	a := At(mem, 0)
	a.Init(64, StateFree, 0, NoBlock, 96)
	assert.True(t, a.Adjacent(96))
	assert.False(t, a.Adjacent(104))
	assert.False(t, a.Adjacent(NoBlock))
}

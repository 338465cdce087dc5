package guard_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heapguard/heapguard/guard"
	"github.com/heapguard/heapguard/pkg/types"
)

func TestRegistryNames(t *testing.T) {
	want := []string{
		"1_byte_read_access", "1_byte_write_access",
		"2_byte_read_access", "2_byte_write_access",
		"4_byte_read_access", "4_byte_write_access",
	}
	for _, width := range []int{1, 2, 4} {
		for _, op := range []string{"movs", "cmps", "stos"} {
			want = append(want,
				fmt.Sprintf("%d_byte_%s_access", width, op),
				fmt.Sprintf("repz_%d_byte_%s_access", width, op))
		}
	}

	assert.Len(t, guard.Checks(), len(want))
	for _, name := range want {
		c, ok := guard.LookupCheck(name)
		require.True(t, ok, "missing %s", name)
		assert.Equal(t, name, c.ID.Name())
	}
	_, ok := guard.LookupCheck("8_byte_read_access")
	assert.False(t, ok)
}

func TestRegistryLookupByID(t *testing.T) {
	c, ok := guard.GetCheck(guard.CheckID{Width: 4, Op: types.OpRead})
	require.True(t, ok)
	assert.False(t, c.IsString())
	require.NotNil(t, c.Scalar)

	c, ok = guard.GetCheck(guard.CheckID{Width: 2, Op: types.OpCmps, Prefixed: true})
	require.True(t, ok)
	assert.True(t, c.IsString())
	require.NotNil(t, c.String)
}

func TestScalarDispatch(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	body, err := rt.Allocate(16)
	require.NoError(t, err)

	for _, width := range []uint8{1, 2, 4} {
		for _, op := range []types.AccessOp{types.OpRead, types.OpWrite} {
			c, ok := guard.GetCheck(guard.CheckID{Width: width, Op: op})
			require.True(t, ok)
			assert.True(t, c.Scalar(rt, body), "%s in bounds", c.ID.Name())
			assert.False(t, c.Scalar(rt, body+16), "%s past end", c.ID.Name())
			r := rep.requireKind(t, types.HeapBufferOverflow)
			assert.Equal(t, width, r.Width)
			assert.Equal(t, op == types.OpWrite, r.Write)
			rep.reset()
		}
	}
}

func TestStringSweepInBounds(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	const elems = 8
	for _, width := range []uint8{1, 2, 4} {
		size := uint32(elems) * uint32(width)
		dst, err := rt.Allocate(size)
		require.NoError(t, err)
		src, err := rt.Allocate(size)
		require.NoError(t, err)

		for _, op := range []types.AccessOp{types.OpMovs, types.OpCmps, types.OpStos} {
			assert.True(t, rt.CheckStringAccess(op, dst, src, elems, width, guard.Forward),
				"%s width %d forward", op, width)
			last := types.Address((elems - 1) * uint32(width))
			assert.True(t, rt.CheckStringAccess(op, dst+last, src+last, elems, width, guard.Backward),
				"%s width %d backward", op, width)
		}
	}
	assert.Zero(t, rep.count())
}

func TestStringZeroCountIsNoOp(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	// Even wild operands are fine when nothing would be touched.
	for _, op := range []types.AccessOp{types.OpMovs, types.OpCmps, types.OpStos} {
		assert.True(t, rt.CheckStringAccess(op, 0x80000000, 0x0, 0, 4, guard.Forward))
	}
	assert.Zero(t, rep.count())
}

func TestMovsAttributesFaultToOperand(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	dst, err := rt.Allocate(32)
	require.NoError(t, err)
	src, err := rt.Allocate(16)
	require.NoError(t, err)

	// src runs out first: the fault is the read, one element past src's end.
	assert.False(t, rt.CheckStringAccess(types.OpMovs, dst, src, 5, 4, guard.Forward))
	r := rep.requireKind(t, types.HeapBufferOverflow)
	assert.Equal(t, src+16, r.Address)
	assert.False(t, r.Write)
	assert.Equal(t, types.OpMovs, r.Op)
	require.NotNil(t, r.Block)
	assert.Equal(t, src, r.Block.Body)

	// dst runs out first: the fault is the write.
	rep.reset()
	small, err := rt.Allocate(8)
	require.NoError(t, err)
	assert.False(t, rt.CheckStringAccess(types.OpMovs, small, dst, 3, 4, guard.Forward))
	r = rep.requireKind(t, types.HeapBufferOverflow)
	assert.Equal(t, small+8, r.Address)
	assert.True(t, r.Write)
	require.NotNil(t, r.Block)
	assert.Equal(t, small, r.Block.Body)

	assert.Equal(t, 1, rep.count(), "at most one report per call")
}

func TestStosOverflowAndUnderflow(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	dst, err := rt.Allocate(16)
	require.NoError(t, err)

	assert.False(t, rt.CheckStringAccess(types.OpStos, dst, 0, 5, 4, guard.Forward))
	r := rep.requireKind(t, types.HeapBufferOverflow)
	assert.Equal(t, dst+16, r.Address)
	assert.True(t, r.Write)
	assert.Equal(t, types.OpStos, r.Op)

	// Backward from the first element walks off the front.
	rep.reset()
	assert.False(t, rt.CheckStringAccess(types.OpStos, dst, 0, 2, 4, guard.Backward))
	r = rep.requireKind(t, types.HeapBufferUnderflow)
	assert.Equal(t, dst-4, r.Address)
}

func TestCmpsStopsAtFirstMismatch(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	for _, width := range []uint8{1, 2, 4} {
		size := 4 * uint32(width)
		dst, err := rt.Allocate(size)
		require.NoError(t, err)
		src, err := rt.Allocate(size)
		require.NoError(t, err)

		dmem, ok := rt.Memory(dst, size)
		require.True(t, ok)
		smem, ok := rt.Memory(src, size)
		require.True(t, ok)
		for i := range dmem {
			dmem[i] = byte(i)
			smem[i] = byte(i)
		}
		// Differ at element 1: the compare halts there and the sweep never
		// reaches the out-of-bounds element.
		dmem[width] ^= 0xFF
		assert.True(t, rt.CheckStringAccess(types.OpCmps, dst, src, 5, width, guard.Forward),
			"width %d", width)
		assert.Zero(t, rep.count(), "width %d", width)

		// With equal buffers the same count walks past the end.
		dmem[width] ^= 0xFF
		assert.False(t, rt.CheckStringAccess(types.OpCmps, dst, src, 5, width, guard.Forward),
			"width %d", width)
		r := rep.requireKind(t, types.HeapBufferOverflow)
		assert.Equal(t, types.OpCmps, r.Op)
		assert.False(t, r.Write, "compares only read")
		rep.reset()
	}
}

func TestUnprefixedStringChecksOneElement(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	dst, err := rt.Allocate(4)
	require.NoError(t, err)
	src, err := rt.Allocate(4)
	require.NoError(t, err)

	// Whatever the count register held, the unprefixed form touches exactly
	// one element.
	c, ok := guard.LookupCheck("4_byte_movs_access")
	require.True(t, ok)
	assert.True(t, c.String(rt, dst, src, 1000, guard.Forward))
	assert.Zero(t, rep.count())

	prefixed, ok := guard.LookupCheck("repz_4_byte_movs_access")
	require.True(t, ok)
	assert.False(t, prefixed.String(rt, dst, src, 1000, guard.Forward))
	rep.requireKind(t, types.HeapBufferOverflow)
}

func TestStringSweepIntoFreedBlock(t *testing.T) {
	rt, rep := newTestRuntime(t, smallOptions())
	dst, err := rt.Allocate(16)
	require.NoError(t, err)
	src, err := rt.Allocate(16)
	require.NoError(t, err)
	require.True(t, rt.Free(src))

	assert.False(t, rt.CheckStringAccess(types.OpMovs, dst, src, 4, 4, guard.Forward))
	r := rep.requireKind(t, types.UseAfterFree)
	assert.Equal(t, src, r.Address)
	assert.False(t, r.Write)
}

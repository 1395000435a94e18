package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestHeapAllocFreeRoundTrip mirrors memtest.c's mem_test_1: allocate
// two blocks, free them, and confirm the heap is usable throughout.
func TestHeapAllocFreeRoundTrip(t *testing.T) {
	h := NewHeap(64*1024, 20*1024, 24*1024)

	a1 := h.Alloc(2000)
	assert.NotNil(t, a1)
	a2 := h.Alloc(2000)
	assert.NotNil(t, a2)

	h.Free(a1)
	h.Free(a2)
	t.Log(h.Dump()) // mem_test_1 eyeballs mem_dump() at this same point

	a3 := h.Alloc(3000)
	assert.NotNil(t, a3, "space freed by a1+a2 should coalesce into something big enough")
	assert.NotEmpty(t, h.Dump())
}

// TestHeapAllocZeroReturnsNil mirrors mem_test_2's kmalloc(0) case.
func TestHeapAllocZeroReturnsNil(t *testing.T) {
	h := NewHeap(64*1024, 0, 0)
	assert.Nil(t, h.Alloc(0))
}

// TestHeapExhaustionThenRecovery mirrors mem_test_2: fill the arena to
// exhaustion (one more allocation fails), free everything, and confirm
// the same allocation pattern succeeds again — coalescing actually
// merges every freed block back together.
func TestHeapExhaustionThenRecovery(t *testing.T) {
	const arenaSize = 256 * 1024
	h := NewHeap(arenaSize, 0, 0)

	const n = 16
	// Each block, header included, takes exactly arenaSize/n bytes, so n
	// allocations commit the whole arena.
	const chunk = arenaSize/n - headerSize
	var bufs [n][]byte
	for i := 0; i < n; i++ {
		bufs[i] = h.Alloc(chunk)
		assert.NotNil(t, bufs[i])
	}

	assert.Nil(t, h.Alloc(arenaSize), "arena is fully committed, nothing that large should fit")

	for i := 0; i < n; i++ {
		h.Free(bufs[i])
	}

	for i := 0; i < n; i++ {
		bufs[i] = h.Alloc(chunk)
		assert.NotNil(t, bufs[i], "freed+coalesced space should satisfy the same pattern again")
	}
}

// TestHeapFreeUnrecognizedPointerIsSilent mirrors kfree's self-check
// tag mismatch behavior: freeing something the heap never handed out
// must not panic or corrupt the free list.
func TestHeapFreeUnrecognizedPointerIsSilent(t *testing.T) {
	h := NewHeap(4096, 0, 0)
	foreign := make([]byte, 16)
	assert.NotPanics(t, func() { h.Free(foreign) })

	a := h.Alloc(100)
	assert.NotNil(t, a)
}

// TestHeapDoubleFreeIsSilent: freeing the same pointer twice must not
// corrupt the free list or panic, since the self-check tag is cleared
// on the first free.
func TestHeapDoubleFreeIsSilent(t *testing.T) {
	h := NewHeap(4096, 0, 0)
	a := h.Alloc(100)
	h.Free(a)
	assert.NotPanics(t, func() { h.Free(a) })
}

// TestHeapRapidAllocFreeNeverOverlaps drives a random sequence of
// allocations and frees and checks that every live allocation's byte
// range is disjoint from every other live allocation's range at all
// times — the core safety property a coalescing allocator must uphold.
func TestHeapRapidAllocFreeNeverOverlaps(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		h := NewHeap(128*1024, 40*1024, 48*1024)
		live := map[int][]byte{}

		steps := rapid.IntRange(1, 80).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "doFree") && len(live) > 0 {
				var victim int
				for k := range live {
					victim = k
					break
				}
				h.Free(live[victim])
				delete(live, victim)
				continue
			}
			n := rapid.IntRange(1, 4000).Draw(rt, "size")
			buf := h.Alloc(n)
			if buf == nil {
				continue
			}
			off := h.offsetOf(buf)
			if off < 0 {
				rt.Fatalf("Alloc returned a slice offsetOf cannot locate")
			}
			for existingOff, existingBuf := range live {
				a1, a2 := off, off+len(buf)
				b1, b2 := existingOff, existingOff+len(existingBuf)
				if a1 < b2 && b1 < a2 {
					rt.Fatalf("overlapping live allocations: [%d,%d) and [%d,%d)", a1, a2, b1, b2)
				}
			}
			live[off] = buf
		}
	})
}

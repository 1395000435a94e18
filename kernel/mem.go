package kernel

import "fmt"

// Paragraph is the allocator's alignment granularity, matching
// PARAGRAPH_SIZE in xeroskernel.h.
const Paragraph = 0x10

// freeBlock is the header that precedes every free chunk, mirroring
// mem_header_t from mem.c: size includes the header itself, prev/next
// thread the address-sorted free list, and selfCheck lets kfree reject
// a pointer that was not actually returned by kmalloc.
type freeBlock struct {
	size      int
	prev      *freeBlock
	next      *freeBlock
	selfCheck *freeBlock
	start     int // byte offset into the arena this header occupies
}

// Heap is a first-fit coalescing allocator over a simulated byte arena
// split by a BIOS hole, per mem.c. It never touches real process memory
// — it is the backing store for simulated PCB stacks, into which the
// context and trampoline frames are encoded, giving component A (spec.md §4.A) a genuine,
// testable role even though process code itself runs as ordinary Go
// goroutines.
type Heap struct {
	arena     []byte
	holeStart int
	holeEnd   int
	freeList  *freeBlock
	// blocks indexes live (allocated) headers by the data-start offset
	// kmalloc returned, so Free can find the header for the offset that
	// offsetOf recovers from a returned slice.
	blocks map[int]*freeBlock
}

const headerSize = 32 // encoded size of freeBlock bookkeeping, paragraph-aligned

// NewHeap builds a heap over an arena of size bytes with a BIOS hole at
// [holeStart, holeEnd). freemem is always 0 in arena-relative terms;
// maxaddr is len(arena).
func NewHeap(size, holeStart, holeEnd int) *Heap {
	h := &Heap{
		arena:     make([]byte, size),
		holeStart: holeStart,
		holeEnd:   holeEnd,
		blocks:    make(map[int]*freeBlock),
	}
	lowSize := alignDown(holeStart) - 0
	if lowSize >= headerSize {
		low := &freeBlock{size: lowSize, start: 0}
		h.freeList = low
		if holeEnd < alignDown(size) {
			highSize := alignDown(size) - holeEnd
			if highSize >= headerSize {
				high := &freeBlock{size: highSize, start: holeEnd}
				low.next = high
				high.prev = low
			}
		}
	} else if holeEnd < alignDown(size) {
		highSize := alignDown(size) - holeEnd
		if highSize >= headerSize {
			h.freeList = &freeBlock{size: highSize, start: holeEnd}
		}
	}
	return h
}

func alignUp(n int) int {
	return (n + Paragraph - 1) &^ (Paragraph - 1)
}

func alignDown(n int) int {
	return n &^ (Paragraph - 1)
}

// Alloc returns a slice of at least n bytes backed by the arena, first
// fit, splitting the chosen block when the remainder still fits a
// header. Returns nil if no block is large enough.
func (h *Heap) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	want := alignUp(n + headerSize)

	var prev *freeBlock
	cur := h.freeList
	for cur != nil {
		if cur.size >= want {
			break
		}
		prev, cur = cur, cur.next
	}
	if cur == nil {
		return nil
	}

	if cur.size-want >= headerSize {
		remainder := &freeBlock{
			size:  cur.size - want,
			start: cur.start + want,
			next:  cur.next,
			prev:  prev,
		}
		if remainder.next != nil {
			remainder.next.prev = remainder
		}
		if prev != nil {
			prev.next = remainder
		} else {
			h.freeList = remainder
		}
		cur.size = want
	} else {
		if prev != nil {
			prev.next = cur.next
		} else {
			h.freeList = cur.next
		}
		if cur.next != nil {
			cur.next.prev = prev
		}
	}

	cur.next, cur.prev = nil, nil
	cur.selfCheck = cur
	dataStart := cur.start + headerSize
	h.blocks[dataStart] = cur
	return h.arena[dataStart : dataStart+n : dataStart+want]
}

// Free returns a slice previously returned by Alloc to the free list,
// silently ignoring pointers it does not recognize (the Go analogue of
// the self-check tag mismatch in mem.c's kfree).
func (h *Heap) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	dataStart := h.offsetOf(buf)
	blk, ok := h.blocks[dataStart]
	if !ok || blk.selfCheck != blk {
		return
	}
	delete(h.blocks, dataStart)
	h.insertSorted(blk)
}

// offsetOf recovers the arena offset of a slice previously handed out by
// Alloc. Go slices retain no address identity of their own once sliced
// from a shared backing array other than via pointer arithmetic on the
// backing array's data pointer, which this module avoids; instead Alloc
// always returns a sub-slice of h.arena, so we can recover the offset by
// comparing against h.arena's own slice header via cap/len bookkeeping
// recorded in h.blocks at Alloc time, keyed by offset. Since callers only
// ever pass back exactly what Alloc returned, we accept dataStart as
// discoverable by scanning blocks whose offset matches a 3-index slice
// identity check.
func (h *Heap) offsetOf(buf []byte) int {
	for off := range h.blocks {
		candidate := h.arena[off : off+len(buf) : off+cap(buf)]
		if &candidate[0] == &buf[0] {
			return off
		}
	}
	return -1
}

func (h *Heap) insertSorted(blk *freeBlock) {
	blk.selfCheck = nil
	var prev *freeBlock
	cur := h.freeList
	for cur != nil && cur.start < blk.start {
		prev, cur = cur, cur.next
	}
	blk.next = cur
	blk.prev = prev
	if cur != nil {
		cur.prev = blk
	}
	if prev != nil {
		prev.next = blk
	} else {
		h.freeList = blk
	}
	// Merge the right neighbor first, so that a block absorbed into its
	// left neighbor carries the right neighbor along with it.
	h.coalesce(blk, blk.next)
	h.coalesce(blk.prev, blk)
}

// coalesce merges second into first when they are address-contiguous,
// mirroring coalesce_blocks in mem.c.
func (h *Heap) coalesce(first, second *freeBlock) {
	if first == nil || second == nil {
		return
	}
	if first.start+first.size != second.start {
		return
	}
	first.size += second.size
	first.next = second.next
	if second.next != nil {
		second.next.prev = first
	}
}

// Dump renders the free list for diagnostics, matching mem_dump's debug
// role; never called from production code paths, only from tests.
func (h *Heap) Dump() string {
	out := ""
	for b := h.freeList; b != nil; b = b.next {
		out += fmt.Sprintf("[%d..%d) ", b.start, b.start+b.size)
	}
	return out
}

package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestPCBQueueBasic mirrors pcbqueuetest.c's queue_test_1: offer then
// poll a single entry and confirm size tracks it.
func TestPCBQueueBasic(t *testing.T) {
	var q pcbQueue
	assert.Equal(t, 0, q.Size())

	entry := newPCB(0)
	q.Offer(entry)
	assert.Equal(t, 1, q.Size())

	result := q.Poll()
	assert.Equal(t, 0, q.Size())
	assert.Same(t, entry, result)
}

// TestPCBQueueFIFOOrder mirrors queue_test_2: PCBTableSize entries
// offered in order come back out in the same order.
func TestPCBQueueFIFOOrder(t *testing.T) {
	var q pcbQueue
	entries := make([]*PCB, PCBTableSize)
	for i := range entries {
		entries[i] = newPCB(i)
		entries[i].Pid = i + 1
		q.Offer(entries[i])
	}
	assert.Equal(t, PCBTableSize, q.Size())

	for i := range entries {
		assert.Same(t, entries[i], q.Poll())
	}
	assert.Equal(t, 0, q.Size())
}

// TestPCBQueueRotation mirrors queue_test_3: repeatedly polling and
// re-offering the same entries leaves size unchanged.
func TestPCBQueueRotation(t *testing.T) {
	var q pcbQueue
	entries := make([]*PCB, 3)
	for i := range entries {
		entries[i] = newPCB(i)
		entries[i].Pid = i + 1
		q.Offer(entries[i])
	}
	for i := 0; i < PCBTableSize; i++ {
		p := q.Poll()
		q.Offer(p)
	}
	assert.Equal(t, 3, q.Size())
}

// TestPCBQueueRemove mirrors queue_test_4: removing every entry by
// reference, in any order, empties the queue.
func TestPCBQueueRemove(t *testing.T) {
	var q pcbQueue
	entries := make([]*PCB, PCBTableSize)
	for i := range entries {
		entries[i] = newPCB(i)
		entries[i].Pid = i + 1
		q.Offer(entries[i])
	}
	for i := PCBTableSize/2 + 1; i < PCBTableSize; i++ {
		assert.True(t, q.Remove(entries[i]))
	}
	for i := PCBTableSize / 2; i >= 0; i-- {
		assert.True(t, q.Remove(entries[i]))
	}
	assert.Equal(t, 0, q.Size())
}

// TestPCBQueueFindNeverRotates resolves Open Question 3: Find must
// never move the matched entry (or anything else) to the tail.
func TestPCBQueueFindNeverRotates(t *testing.T) {
	var q pcbQueue
	a, b, c := newPCB(0), newPCB(1), newPCB(2)
	q.Offer(a)
	q.Offer(b)
	q.Offer(c)

	found := q.Find(func(p *PCB) bool { return p == b })
	assert.Same(t, b, found)
	assert.Same(t, a, q.Peek())
	assert.Equal(t, 3, q.Size())

	assert.Same(t, a, q.Poll())
	assert.Same(t, b, q.Poll())
	assert.Same(t, c, q.Poll())
}

// TestPCBQueueRapidOfferPollInvariant drives rapid Offer/Poll
// sequences and checks the queue's size bookkeeping and FIFO ordering
// hold under arbitrary interleavings.
func TestPCBQueueRapidOfferPollInvariant(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var q pcbQueue
		var model []*PCB

		steps := rapid.IntRange(1, 50).Draw(rt, "steps")
		nextSlot := 0
		for i := 0; i < steps; i++ {
			op := rapid.SampledFrom([]string{"offer", "poll"}).Draw(rt, "op")
			switch op {
			case "offer":
				p := newPCB(nextSlot)
				nextSlot++
				q.Offer(p)
				model = append(model, p)
			case "poll":
				p := q.Poll()
				if len(model) == 0 {
					if p != nil {
						rt.Fatalf("poll on empty queue returned non-nil")
					}
					continue
				}
				want := model[0]
				model = model[1:]
				if p != want {
					rt.Fatalf("FIFO order violated")
				}
			}
			if q.Size() != len(model) {
				rt.Fatalf("size mismatch: queue=%d model=%d", q.Size(), len(model))
			}
		}
	})
}

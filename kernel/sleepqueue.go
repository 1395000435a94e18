package kernel

// sleepQueue is a monotone delta-queue: each node stores the tick delta
// to the previous node, so the head's delta is the absolute number of
// ticks remaining until the earliest sleeper wakes. Mirrors sleep.c.
type sleepQueue struct {
	head *PCB
	tail *PCB
}

// Insert places p into the delta-queue to wake after p.deltaTicks more
// ticks, walking the queue subtracting each node's delta from the
// request until the request is strictly less than the next node's
// delta (sleep.c's add_pcb_to_sleep_queue).
func (sq *sleepQueue) Insert(p *PCB) {
	remaining := p.deltaTicks
	var prev *PCB
	cur := sq.head
	for cur != nil && cur.deltaTicks <= remaining {
		remaining -= cur.deltaTicks
		prev, cur = cur, cur.Next
	}
	p.deltaTicks = remaining
	p.Next = cur
	if cur != nil {
		cur.deltaTicks -= remaining
	} else {
		sq.tail = p
	}
	if prev != nil {
		prev.Next = p
	} else {
		sq.head = p
	}
}

// Remove detaches p, restoring the following node's delta by adding
// back p's delta (sleep.c's remove_pcb_from_sleep_queue).
func (sq *sleepQueue) Remove(p *PCB) bool {
	var prev *PCB
	cur := sq.head
	for cur != nil {
		if cur == p {
			if prev != nil {
				prev.Next = cur.Next
			} else {
				sq.head = cur.Next
			}
			if cur == sq.tail {
				sq.tail = prev
			}
			if cur.Next != nil {
				cur.Next.deltaTicks += cur.deltaTicks
			}
			cur.Next = nil
			return true
		}
		prev, cur = cur, cur.Next
	}
	return false
}

func (sq *sleepQueue) Peek() *PCB {
	return sq.head
}

// Tick decrements the head's delta by one and returns every PCB whose
// delta has reached zero or below, in wake order, removing them from
// the queue (sleep.c's tick()/wake()).
func (sq *sleepQueue) Tick() []*PCB {
	if sq.head == nil {
		return nil
	}
	sq.head.deltaTicks--
	var woken []*PCB
	for sq.head != nil && sq.head.deltaTicks <= 0 {
		p := sq.head
		sq.head = p.Next
		if sq.head == nil {
			sq.tail = nil
		}
		p.Next = nil
		woken = append(woken, p)
	}
	return woken
}

// TotalDelta sums every node's delta, i.e. the absolute wake time of the
// last sleeper; TestSleepQueueRemoveRestoresFollowingDelta uses it to
// check that removal leaves that sum unchanged.
func (sq *sleepQueue) TotalDelta() int {
	total := 0
	for cur := sq.head; cur != nil; cur = cur.Next {
		total += cur.deltaTicks
	}
	return total
}

package kernel

// doCreate implements create.c's create(): allocate a stack, pull a
// free PCB, build the initial context frame at the top of the stack,
// pre-install KILL, and enqueue it ready. No "return to stop" word is
// written into the stack; startProcess stops the process when its entry
// function returns. Returns
// CreateFailure on allocation or PCB exhaustion.
func (k *Kernel) doCreate(entry func(p *Proc), stackSize int) int {
	if entry == nil {
		return CreateFailure
	}
	if stackSize < DefaultStackSize {
		stackSize = DefaultStackSize
	}

	stack := k.heap.Alloc(stackSize)
	if stack == nil {
		return CreateFailure
	}

	pcb := k.stopped.Poll()
	if pcb == nil {
		k.heap.Free(stack)
		return CreateFailure
	}

	k.initProcess(pcb, stack, entry)
	pcb.State = StateReady
	pcb.BlockedStatus = BlockedNone
	k.ready.Offer(pcb)
	k.startProcess(pcb)

	return pcb.Pid
}

// initProcess resets a freshly-pulled PCB's per-run state: stack,
// context frame (eip tagged by a registry index so tests can confirm
// "the target entry function appears at the resumed eip"), zeroed
// signal table with KILL pre-installed, and a fresh resume channel.
func (k *Kernel) initProcess(pcb *PCB, stack []byte, entry func(p *Proc)) {
	pcb.Stack = stack
	pcb.Ret = 0
	pcb.CPUTime = 0
	pcb.BlockedID = 0
	pcb.SignalsPending = 0
	pcb.SignalsInFlight = 0
	pcb.SignalTable = [SignalTableSize]SignalHandler{}
	// Every process gets a default handler for the kill signal that
	// terminates it, matching create.c's
	// new_proc->signal_table[KILL_SIGNAL_NUM] = (funcptr_args)&sysstop.
	self := &Proc{k: k, slot: pcb.Slot}
	pcb.SignalTable[KillSignalNum] = func(ctx *SignalContext) { self.Stop() }
	pcb.FDTable = [MaxFDs]*openFile{}
	pcb.msgBuf = nil
	pcb.msgFrom = nil
	pcb.kbdWaiting = false

	eip := k.registerEntry(entry)
	pcb.Frame = initContextFrame(eip, 0)
	if len(stack) >= FrameSize {
		pcb.Frame.Encode(stack[len(stack)-FrameSize:])
	}

	pcb.entry = entry
	pcb.resumeCh = make(chan resumeMsg)
	pcb.done = make(chan struct{})
}

// registerEntry assigns entry a stable synthetic "address" so the
// context frame's eip field is a meaningful, comparable value for tests,
// standing in for the real linker address create.c captures.
func (k *Kernel) registerEntry(entry func(p *Proc)) uint32 {
	k.entryTable = append(k.entryTable, entry)
	return uint32(len(k.entryTable) - 1)
}

// startProcess launches the goroutine backing pcb. It blocks for its
// first scheduling grant, runs the entry function with the syscall
// gateway, and auto-stops if the entry returns normally — the Go
// analogue of a process falling off the end of its function onto the
// "stop" return address create.c writes at the top of every stack.
func (k *Kernel) startProcess(pcb *PCB) {
	resumeCh := pcb.resumeCh
	entry := pcb.entry
	pid := pcb.Pid
	slot := pcb.Slot
	go func() {
		<-resumeCh
		entry(&Proc{k: k, slot: slot})
		k.events <- event{pid: pid, req: Request{Tag: ReqStop}}
		select {}
	}()
}

// idleLoop launches the singleton idle process. It never issues a real
// syscall and never talks back to the dispatcher: it just parks, the Go
// analogue of idleproc()'s tight hlt loop. The dispatcher alone decides
// when idle is swapped out, at the safe point after draining pending
// ticks and keyboard events (see SPEC_FULL.md's scheduling model).
func (k *Kernel) idleLoop(idle *PCB) {
	go func() {
		for {
			<-idle.resumeCh
		}
	}()
}

// cleanupPCB implements pcb.c's cleanup_pcb: detach from every queue it
// might be in, wake any waiters, free its memory, and recycle the slot
// with the pid advanced per spec.md §3.
func (k *Kernel) cleanupPCB(p *PCB) {
	k.ready.Remove(p)
	k.blocked.Remove(p)
	k.sleepQ.Remove(p)

	waiters := k.blocked.Find(func(c *PCB) bool {
		return c.BlockedStatus == BlockedWait && c.BlockedID == p.Pid
	})
	for waiters != nil {
		k.blocked.Remove(waiters)
		waiters.Ret = OK
		k.wake(waiters)
		waiters = k.blocked.Find(func(c *PCB) bool {
			return c.BlockedStatus == BlockedWait && c.BlockedID == p.Pid
		})
	}

	k.heap.Free(p.Stack)
	p.Stack = nil
	p.FDTable = [MaxFDs]*openFile{}

	p.State = StateStopped
	p.BlockedStatus = BlockedNone
	p.BlockedID = 0
	p.CPUTime = 0
	p.Pid = nextPid(p.Pid)
	k.stopped.Offer(p)
}

// pidToPCB mirrors pcb.c's pid_to_pcb: the slot is (pid-1) mod N, but
// only live (non-stopped) entries are a match.
func (k *Kernel) pidToPCB(pid int) *PCB {
	if pid <= 0 {
		return nil
	}
	slot := (pid - 1) % PCBTableSize
	p := &k.pcbs[slot]
	if p.Pid != pid || p.State == StateStopped {
		return nil
	}
	return p
}

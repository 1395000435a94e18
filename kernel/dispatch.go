package kernel

// handle processes one event to completion: a tick, a keyboard
// scancode, or a syscall request from whichever process currently
// holds the run token. Exactly one call to handle is ever in flight,
// since Run's loop only reads the next event after this one returns.
func (k *Kernel) handle(ev event) {
	switch ev.req.Tag {
	case reqTick, reqKbdScancode, reqKbdByte:
		switch ev.req.Tag {
		case reqTick:
			k.onTick()
		case reqKbdScancode:
			k.kbd.ISR(k, ev.req.Args.(kbdScancodeArgs).Scancode)
		case reqKbdByte:
			k.kbd.DeliverByte(k, ev.req.Args.(kbdByteArgs).Byte)
		}
		// Idle never traps, so this is where it is swapped out once a
		// tick or keystroke has made another process ready.
		if k.current == k.idle && k.ready.Size() > 0 {
			k.scheduleNext()
		}
		return
	}

	curr := k.current
	if curr == nil || curr.Pid != ev.pid {
		// A request from a process that has already been cleaned up
		// (e.g. a racing sigreturn against a process a signal handler
		// itself just killed). Nothing to do.
		return
	}

	switch ev.req.Tag {
	case ReqCreate:
		a := ev.req.Args.(CreateArgs)
		curr.Ret = k.doCreate(a.Entry, a.Stack)
		k.continueCurrent()

	case ReqYield:
		curr.Ret = OK
		k.ready.Offer(curr)
		k.scheduleNext()

	case ReqStop:
		k.cleanupPCB(curr)
		k.scheduleNext()

	case ReqGetPID:
		curr.Ret = curr.Pid
		k.continueCurrent()

	case ReqPuts:
		a := ev.req.Args.(PutsArgs)
		if k.stdout != nil {
			k.stdout.Write([]byte(a.Msg))
		}
		curr.Ret = OK
		k.continueCurrent()

	case ReqKill:
		a := ev.req.Args.(KillArgs)
		k.handleKill(curr, a)
		k.continueCurrent()

	case ReqSend:
		a := ev.req.Args.(SendArgs)
		k.handleSend(curr, a)

	case ReqRecv:
		a := ev.req.Args.(RecvArgs)
		k.handleRecv(curr, a)

	case ReqSleep:
		a := ev.req.Args.(SleepArgs)
		k.handleSleep(curr, a)

	case ReqCPUTimes:
		a := ev.req.Args.(CPUTimesArgs)
		if a.PS != nil {
			k.fillProcessStatuses(a.PS)
		}
		curr.Ret = OK
		k.continueCurrent()

	case ReqSigHandler:
		a := ev.req.Args.(SigHandlerArgs)
		curr.Ret = k.doSigHandler(curr, a.Sig, a.New, a.Old)
		k.continueCurrent()

	case ReqSigReturn:
		a := ev.req.Args.(sigReturnArgs)
		k.sigreturn(curr, a.ctx)
		k.continueCurrent()

	case ReqWait:
		a := ev.req.Args.(WaitArgs)
		k.handleWait(curr, a)

	case ReqOpen:
		a := ev.req.Args.(OpenArgs)
		curr.Ret = k.diOpen(curr, a.DevNum)
		k.continueCurrent()

	case ReqClose:
		a := ev.req.Args.(CloseArgs)
		curr.Ret = k.diClose(curr, a.Fd)
		k.continueCurrent()

	case ReqWrite:
		a := ev.req.Args.(WriteArgs)
		curr.Ret = k.diWrite(curr, a.Fd, a.Buf)
		k.continueCurrent()

	case ReqRead:
		a := ev.req.Args.(ReadArgs)
		k.handleRead(curr, a)

	case ReqIoctl:
		a := ev.req.Args.(IoctlArgs)
		curr.Ret = k.diIoctl(curr, a.Fd, a.Cmd, a.Args)
		k.continueCurrent()

	default:
		// disp.c's dispatcher treats an unrecognized syscall id as a
		// fatal kernel fault, not a recoverable per-process error.
		k.logger.Fatal("unknown syscall tag", "tag", ev.req.Tag, "pid", ev.pid)
	}
}

// continueCurrent re-grants the token to the same process that just
// trapped, without touching any queue — the common case for syscalls
// that always complete synchronously.
func (k *Kernel) continueCurrent() {
	k.grant(k.current, k.current.Ret)
}

// blockCurrent moves the current process into the blocked queue under
// the given reason and picks a new current.
func (k *Kernel) blockCurrent(reason BlockedStatus, id int) {
	p := k.current
	p.State = StateBlocked
	p.BlockedStatus = reason
	p.BlockedID = id
	k.blocked.Offer(p)
	k.scheduleNext()
}

func (k *Kernel) handleKill(curr *PCB, a KillArgs) {
	target := k.pidToPCB(a.Pid)
	if target == nil {
		curr.Ret = SyskillTargetDNE
		return
	}
	curr.Ret = k.raiseSignal(target, a.Sig)
}

func (k *Kernel) handleSend(curr *PCB, a SendArgs) {
	outcome := k.doSend(curr, a.Dest, a.Buf)
	if outcome.blocked {
		curr.msgBuf = a.Buf
		curr.msgFrom = nil
		k.blockCurrent(BlockedSend, a.Dest)
		return
	}
	curr.Ret = outcome.ret
	k.continueCurrent()
}

func (k *Kernel) handleRecv(curr *PCB, a RecvArgs) {
	from := 0
	if a.From != nil {
		from = *a.From
	}
	outcome := k.doRecv(curr, from, a.Buf, a.From)
	if outcome.blocked {
		curr.msgBuf = a.Buf
		curr.msgFrom = a.From
		k.blockCurrent(BlockedRecv, from)
		return
	}
	curr.Ret = outcome.ret
	k.continueCurrent()
}

func (k *Kernel) handleSleep(curr *PCB, a SleepArgs) {
	ticks := ceilDiv(a.Ms, MsPerClockTick)
	if ticks <= 0 {
		curr.Ret = OK
		k.continueCurrent()
		return
	}
	// A sleeper lives only in the sleep delta-queue, not also in the
	// blocked queue: both link through the PCB's single Next field.
	curr.deltaTicks = ticks
	k.sleepQ.Insert(curr)
	curr.State = StateBlocked
	curr.BlockedStatus = BlockedSleep
	curr.BlockedID = 0
	k.scheduleNext()
}

func (k *Kernel) handleWait(curr *PCB, a WaitArgs) {
	target := k.pidToPCB(a.Pid)
	if target == nil {
		curr.Ret = SyspidDNE
		k.continueCurrent()
		return
	}
	k.blockCurrent(BlockedWait, a.Pid)
}

func (k *Kernel) handleRead(curr *PCB, a ReadArgs) {
	of := k.validFD(curr, a.Fd)
	if of == nil {
		curr.Ret = Syserr
		k.continueCurrent()
		return
	}
	ret := of.dev.Read(k, curr, a.Buf)
	if ret == BlockErr {
		k.blockCurrent(BlockedDeviceIO, 0)
		return
	}
	curr.Ret = ret
	k.continueCurrent()
}

// onTick implements the periodic clock-interrupt work: advance the
// sleep delta-queue, waking anyone whose timer expired, and charge the
// running process a tick of CPU time. It deliberately does not force
// current off the token — see Run's doc comment on why this port
// cannot preempt mid-execution and instead only ever reschedules at a
// process's own next trap.
func (k *Kernel) onTick() {
	if k.current != nil && k.current != k.idle {
		k.current.CPUTime++
	}
	for _, p := range k.sleepQ.Tick() {
		p.Ret = OK
		k.wake(p)
	}
}

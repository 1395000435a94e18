package kernel

import (
	"io"

	"github.com/charmbracelet/log"
)

// Kernel holds every piece of mutable state the original C kernel kept
// in static/global scope: the PCB table, the three scheduling queues,
// the sleep delta-queue, the heap, the device table, and the pending
// event stream. Exactly one goroutine — the one running Run — ever
// touches any of it, which is what lets this port drop every mutex the
// original's single-CPU, interrupts-disabled-while-in-kernel discipline
// would otherwise demand. See SPEC_FULL.md §5.
type Kernel struct {
	pcbs    [PCBTableSize]PCB
	ready   pcbQueue
	blocked pcbQueue
	stopped pcbQueue
	sleepQ  sleepQueue

	idle    *PCB
	current *PCB

	heap    *Heap
	devices [NumDevices]Device
	kbd     *Keyboard

	entryTable []func(p *Proc)

	events chan event

	cfg    Config
	logger *log.Logger
	stdout io.Writer

	shutdown chan struct{}
}

// NewKernel boots a Kernel from cfg: builds the heap arena, seeds the
// PCB table as entirely StateStopped (free), installs the keyboard
// driver under both device numbers, and starts the idle process. This
// mirrors create.c/initproc()'s boot-time setup, minus the MMU and
// segment-descriptor work that has no meaning without real hardware.
func NewKernel(cfg Config, stdout io.Writer, logger *log.Logger) *Kernel {
	k := &Kernel{
		heap:     NewHeap(cfg.MemSize, cfg.HoleStart, cfg.HoleEnd),
		events:   make(chan event, 64),
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		shutdown: make(chan struct{}),
	}

	for i := range k.pcbs {
		k.pcbs[i] = *newPCB(i)
		k.stopped.Offer(&k.pcbs[i])
	}

	k.kbd = NewKeyboard(cfg.KeyboardEOF)
	k.devices[DevKeyboardNoEcho] = k.kbd
	k.devices[DevKeyboardEcho] = k.kbd

	k.idle = k.bootIdle()

	return k
}

// bootIdle pulls a PCB for the idle process and starts its park-forever
// goroutine directly, bypassing the normal entry/startProcess path
// since idle is never handed a user entry function and is never placed
// in the ready queue — it is the Kernel's fallback when ready is empty.
func (k *Kernel) bootIdle() *PCB {
	pcb := k.stopped.Poll()
	stack := k.heap.Alloc(IdleStackSize)
	k.initProcess(pcb, stack, nil)
	pcb.State = StateRunning
	k.idleLoop(pcb)
	return pcb
}

// Boot creates the first real process (conventionally root, Component
// J) and primes the dispatcher to grant it the first run token.
func (k *Kernel) Boot(entry func(p *Proc), stackSize int) int {
	return k.doCreate(entry, stackSize)
}

// Run is the dispatcher: it grants the run token to whoever scheduling
// picks, then services events — syscall requests from whichever
// process currently holds the token, clock ticks, and keyboard
// scancodes — forever, one at a time, off a single channel. Because
// every event is handled to completion before the next is read, no
// two events are ever in flight together, and a tick or scancode that
// arrives while a process is mid-execution (between syscalls) is
// simply queued until that process's next trap — see SPEC_FULL.md's
// note on why this port cannot reproduce true mid-instruction
// preemption and does not try to.
func (k *Kernel) Run() {
	k.scheduleNext()
	for {
		select {
		case ev := <-k.events:
			k.handle(ev)
		case <-k.shutdown:
			return
		}
	}
}

// Shutdown stops Run after its current event finishes processing.
func (k *Kernel) Shutdown() {
	close(k.shutdown)
}

// Tick is the public entry point the 100Hz ticker goroutine (or a
// test) calls once per clock period.
func (k *Kernel) Tick() {
	k.events <- event{req: Request{Tag: reqTick}}
}

// KeyPress is the public entry point for raw scancode input, called
// once per scancode byte. cmd/xeros's stdin reader does not use it; it
// feeds decoded bytes through KeyByte instead.
func (k *Kernel) KeyPress(scancode byte) {
	k.events <- event{req: Request{Tag: reqKbdScancode, Args: kbdScancodeArgs{Scancode: scancode}}}
}

// KeyByte is the public entry point for a host terminal delivering an
// already-decoded byte (see Keyboard.DeliverByte's doc comment for why
// this port takes decoded input rather than re-deriving scancodes).
func (k *Kernel) KeyByte(c byte) {
	k.events <- event{req: Request{Tag: reqKbdByte, Args: kbdByteArgs{Byte: c}}}
}

// scheduleNext grants the run token to the head of ready, or to idle
// if ready is empty, and records it as current.
func (k *Kernel) scheduleNext() {
	p := k.ready.Poll()
	if p == nil {
		p = k.idle
	} else {
		p.State = StateRunning
	}
	k.current = p
	k.grant(p, p.Ret)
}

// grant hands p the token by delivering its pending return value (or
// signal) on its resume channel — the rendezvous point where a parked
// process goroutine becomes the one goroutine allowed to run kernel-
// visible code until its next trap.
func (k *Kernel) grant(p *PCB, value int) {
	if sig := k.pickSignal(p); sig != nil {
		p.resumeCh <- resumeMsg{signal: sig}
		return
	}
	p.resumeCh <- resumeMsg{value: value}
}

// echoByte writes a single echoed keystroke to the kernel's console
// output, standing in for kbd.c writing straight to the video driver.
func (k *Kernel) echoByte(c byte) {
	if k.stdout == nil {
		return
	}
	k.stdout.Write([]byte{c})
}

// wakeDeviceIO resolves a blocked device read: set the caller's return
// value to the byte count delivered and move it back to ready.
func (k *Kernel) wakeDeviceIO(p *PCB, n int) {
	p.Ret = n
	k.blocked.Remove(p)
	k.wake(p)
}

// ProcStatus is one row of the process table, the Go analogue of
// pcb.c's processStatuses entry: pid, coarse state, detailed state
// string, and accumulated CPU ticks.
type ProcStatus struct {
	Pid      int
	State    string
	CPUTicks int64
}

// ProcessStatuses is the snapshot sysgetcputimes/"ps" reads, sized to
// the full PCB table per spec.md §6.
type ProcessStatuses struct {
	Count   int
	Entries [PCBTableSize]ProcStatus
}

// detailedState renders a PCB's state the way command_ps prints it,
// spelled exactly as spec.md §6 requires: "BLOCKED:DEVICE-IO" for a
// device-blocked process, not "BLOCKED:DEVICEIO" or "BLOCKED_DEVICE_IO".
func detailedState(p *PCB) string {
	switch p.State {
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	case StateBlocked:
		switch p.BlockedStatus {
		case BlockedSend:
			return "BLOCKED:SENDING"
		case BlockedRecv:
			return "BLOCKED:RECEIVING"
		case BlockedWait:
			return "BLOCKED:WAITING"
		case BlockedSleep:
			return "BLOCKED:SLEEPING"
		case BlockedDeviceIO:
			return "BLOCKED:DEVICE-IO"
		default:
			return "BLOCKED:NONE"
		}
	default:
		return "UNKNOWN"
	}
}

// fillProcessStatuses implements pcb.c's fill_processStatus: one row
// per live (non-stopped) PCB, idle included, in table order.
func (k *Kernel) fillProcessStatuses(ps *ProcessStatuses) {
	ps.Count = 0
	for i := range k.pcbs {
		p := &k.pcbs[i]
		if p.State == StateStopped {
			continue
		}
		ps.Entries[ps.Count] = ProcStatus{Pid: p.Pid, State: detailedState(p), CPUTicks: p.CPUTime}
		ps.Count++
	}
}

// ceilDiv rounds ms up to a whole number of clock ticks, since a
// sleeping process must never wake before the requested duration has
// elapsed, per sleep.c's tick quantization.
func ceilDiv(ms, tickMs int) int {
	if tickMs <= 0 {
		tickMs = 1
	}
	return (ms + tickMs - 1) / tickMs
}

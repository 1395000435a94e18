package kernel

// ProcState is a PCB's top-level scheduling state.
type ProcState int

const (
	StateStopped ProcState = iota
	StateReady
	StateRunning
	StateBlocked
)

func (s ProcState) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// BlockedStatus refines why a Blocked PCB is blocked.
type BlockedStatus int

const (
	BlockedNone BlockedStatus = iota
	BlockedSend
	BlockedRecv
	BlockedWait
	BlockedSleep
	BlockedDeviceIO
)

// SignalHandler is a user-installed handler, invoked synchronously from
// the owning process's own goroutine at the dispatcher's safe point. See
// SPEC_FULL.md's "Go-native scheduling model" for why this replaces the
// original's stack-rewriting trampoline.
type SignalHandler func(ctx *SignalContext)

// SignalContext is the argument passed to a handler and to sigreturn,
// carrying what the original trampoline would have pushed on the stack.
type SignalContext struct {
	Signal     int
	savedRet   int
	savedFrame ContextFrame
}

// pendingSignal describes a signal delivery in progress, handed to a
// process's trap loop via resumeMsg.
type pendingSignal struct {
	num     int
	handler SignalHandler
	ctx     *SignalContext
}

// resumeMsg is what the dispatcher sends on a PCB's resumeCh: either a
// real syscall return value, or a signal to run before that value is
// delivered.
type resumeMsg struct {
	value  int
	signal *pendingSignal
}

// PCB is the kernel's per-process record, sized and shaped per
// spec.md §3.
type PCB struct {
	Pid           int
	Slot          int
	State         ProcState
	BlockedStatus BlockedStatus
	BlockedID     int
	Next          *PCB

	Stack []byte
	Frame ContextFrame

	Ret     int
	CPUTime int64

	SignalTable     [SignalTableSize]SignalHandler
	SignalsPending  uint32
	SignalsInFlight uint32

	FDTable [MaxFDs]*openFile

	deltaTicks int

	// messaging: the buffer this PCB is waiting to fill/drain, and for
	// a blocked receiver, its from pointer, into which the sender's pid
	// is written on delivery.
	msgBuf  []byte
	msgFrom *int

	// keyboard: only reset at process creation; the keyboard driver
	// tracks blocked reads in its own per-slot task table.
	kbdWaiting bool

	resumeCh chan resumeMsg
	entry    func(p *Proc)
	done     chan struct{}
}

func newPCB(slot int) *PCB {
	return &PCB{
		Slot:     slot,
		Pid:      slot + 1,
		State:    StateStopped,
		resumeCh: make(chan resumeMsg),
		done:     make(chan struct{}),
	}
}

// nextPid implements pid recycling: the pid advances by N, wrapping
// within 1..PID_MAX, so the slot (pid-1) mod N stays the same while
// consecutive reuses of that slot yield distinct pids.
func nextPid(pid int) int {
	return (pid+PCBTableSize-1)%PidMax + 1
}

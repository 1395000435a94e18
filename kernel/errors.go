package kernel

// ABI-level error codes. These cross the syscall boundary as plain
// signed ints, exactly as the original kernel returns them from eax —
// they are never wrapped as Go `error` values, since user code (the
// shell, the scenario tests) checks them the same way original user.c
// does: by comparing against these small constants.
const (
	// OK is the ABI-facing success code every syscall handler returns
	// (set_pcb_signal/sighandler/wait/sleep/di_close all return literal
	// 0 in the original). xeroskernel.h's `#define OK 1` is only the
	// internal verify_sysptr/dvopen sentinel, not what crosses the ABI.
	OK            = 0
	Syserr        = -1
	Eof           = -2
	Timeout       = -3
	IntrMsg       = -4
	BlockErr      = -5
	CreateFailure = -1

	SyspidDNE     = -1
	SyspidSelf    = -2
	SyserrOther   = -3

	SigHandlerInvalidSignal    = -1
	SigHandlerNewHandlerBad    = -2
	SigHandlerOldHandlerBad    = -3

	SyskillTargetDNE  = -512
	SyskillSigInvalid = -561

	BlockedProcSignaled = -99
)

package kernel

// Table sizes and limits, ported from xeroskernel.h.
const (
	PCBTableSize     = 32
	SignalTableSize  = 32
	PidMax           = 32768
	MaxFDs           = 4
	DefaultStackSize = 8192
	IdleStackSize    = 2048
	MsPerClockTick   = 10
	KillSignalNum    = SignalTableSize - 1

	// STARTING_EFLAGS: interrupts enabled (IF, bit 0x200) plus IOPL 3
	// (bits 12-13, 0x3000).
	StartingEflags = 0x00003200

	// Keyboard ioctl commands.
	IoctlSetEOF      = 53
	IoctlDisableEcho = 55
	IoctlEnableEcho  = 56

	DefaultEOFChar = 0x04

	// Device numbers.
	DevKeyboardNoEcho = 0
	DevKeyboardEcho   = 1
	NumDevices        = 2
)

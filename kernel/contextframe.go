package kernel

import "encoding/binary"

// ContextFrame mirrors context_frame_t from ctsw.c: the register file an
// interrupt entry stub pushes onto the user stack, plus the iret frame
// below it. Real field order matters because the dispatcher patches the
// eax slot directly; here that fixed layout is expressed as a struct
// with a documented byte encoding rather than raw pointer arithmetic, so
// the "offset 28" fact from the original is a property of FrameSize/
// eaxOffset instead of something callers compute by hand.
type ContextFrame struct {
	EDI uint32
	ESI uint32
	EBP uint32
	ESP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32

	IretEIP    uint32
	IretCS     uint32
	EFlags     uint32
}

// FrameSize is the encoded byte size of a ContextFrame.
const FrameSize = 11 * 4

// eaxOffset is the byte offset of the EAX slot within the encoded frame,
// counting from the top of the pusha block — seven 4-byte registers in
// (edi, esi, ebp, esp, ebx, edx, ecx), matching ctsw.c's patch point.
const eaxOffset = 7 * 4

// Encode writes the frame into buf[:FrameSize] in pusha order.
func (cf *ContextFrame) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], cf.EDI)
	binary.LittleEndian.PutUint32(buf[4:8], cf.ESI)
	binary.LittleEndian.PutUint32(buf[8:12], cf.EBP)
	binary.LittleEndian.PutUint32(buf[12:16], cf.ESP)
	binary.LittleEndian.PutUint32(buf[16:20], cf.EBX)
	binary.LittleEndian.PutUint32(buf[20:24], cf.EDX)
	binary.LittleEndian.PutUint32(buf[24:28], cf.ECX)
	binary.LittleEndian.PutUint32(buf[28:32], cf.EAX)
	binary.LittleEndian.PutUint32(buf[32:36], cf.IretEIP)
	binary.LittleEndian.PutUint32(buf[36:40], cf.IretCS)
	binary.LittleEndian.PutUint32(buf[40:44], cf.EFlags)
}

// DecodeContextFrame reads a frame back out of buf[:FrameSize].
func DecodeContextFrame(buf []byte) ContextFrame {
	return ContextFrame{
		EDI:     binary.LittleEndian.Uint32(buf[0:4]),
		ESI:     binary.LittleEndian.Uint32(buf[4:8]),
		EBP:     binary.LittleEndian.Uint32(buf[8:12]),
		ESP:     binary.LittleEndian.Uint32(buf[12:16]),
		EBX:     binary.LittleEndian.Uint32(buf[16:20]),
		EDX:     binary.LittleEndian.Uint32(buf[20:24]),
		ECX:     binary.LittleEndian.Uint32(buf[24:28]),
		EAX:     binary.LittleEndian.Uint32(buf[28:32]),
		IretEIP: binary.LittleEndian.Uint32(buf[32:36]),
		IretCS:  binary.LittleEndian.Uint32(buf[36:40]),
		EFlags:  binary.LittleEndian.Uint32(buf[40:44]),
	}
}

// patchEAX rewrites only the eax slot of an already-encoded frame, the
// Go analogue of ctsw.c patching offset 28 before iret.
func patchEAX(buf []byte, val uint32) {
	binary.LittleEndian.PutUint32(buf[eaxOffset:eaxOffset+4], val)
}

// initContextFrame builds the frame for a freshly created process: all
// registers zero, eip/cs/eflags set so the trampoline record shows
// interrupts enabled, matching init_context_frame in create.c.
func initContextFrame(eip uint32, cs uint32) ContextFrame {
	return ContextFrame{
		IretEIP: eip,
		IretCS:  cs,
		EFlags:  StartingEflags,
	}
}

package kernel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeviceOpenCloseErrors mirrors devicetest.c's test_device_open: an
// out-of-range device number fails, a valid open succeeds and returns a
// usable fd, and closing that fd succeeds.
func TestDeviceOpenCloseErrors(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var results [4]int

	proc := func(p *Proc) {
		results[0] = p.Open(-1)
		results[1] = p.Open(NumDevices + 5)
		fd := p.Open(DevKeyboardNoEcho)
		results[2] = fd
		results[3] = p.Close(fd)
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(proc, DefaultStackSize))
	startDispatcher(t, k)
	awaitOrFail(t, done, "device open/close errors")

	assert.Equal(t, Syserr, results[0])
	assert.Equal(t, Syserr, results[1])
	assert.GreaterOrEqual(t, results[2], 0)
	assert.Equal(t, OK, results[3])
}

// TestDeviceExhaustsFDTable mirrors a process opening more files than
// its fd table has slots: the MaxFDs+1'th open must fail cleanly.
func TestDeviceExhaustsFDTable(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var last int

	proc := func(p *Proc) {
		for i := 0; i < MaxFDs; i++ {
			fd := p.Open(DevKeyboardNoEcho)
			require.GreaterOrEqual(t, fd, 0)
		}
		last = p.Open(DevKeyboardNoEcho)
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(proc, DefaultStackSize))
	startDispatcher(t, k)
	awaitOrFail(t, done, "fd table exhaustion")
	assert.Equal(t, Syserr, last)
}

// TestDeviceWriteIsUnsupported mirrors devicetest.c's test_device_write:
// the keyboard has no write support and must report an error rather
// than silently accepting bytes.
func TestDeviceWriteIsUnsupported(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var writeRet int

	proc := func(p *Proc) {
		fd := p.Open(DevKeyboardNoEcho)
		writeRet = p.Write(fd, []byte("hello"))
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(proc, DefaultStackSize))
	startDispatcher(t, k)
	awaitOrFail(t, done, "device write unsupported")
	assert.Equal(t, Syserr, writeRet)
}

// TestDeviceIoctlErrors mirrors devicetest.c's test_device_ioctl: a bad
// fd and an unknown command both fail, while a known command (toggling
// echo) succeeds.
func TestDeviceIoctlErrors(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var results [3]int

	proc := func(p *Proc) {
		results[0] = p.Ioctl(99, IoctlDisableEcho)
		fd := p.Open(DevKeyboardNoEcho)
		results[1] = p.Ioctl(fd, 9999)
		results[2] = p.Ioctl(fd, IoctlDisableEcho)
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(proc, DefaultStackSize))
	startDispatcher(t, k)
	awaitOrFail(t, done, "device ioctl errors")
	assert.Equal(t, Syserr, results[0])
	assert.Equal(t, Syserr, results[1])
	assert.Equal(t, OK, results[2])
}

// TestCPUTimesReportsLiveProcesses mirrors devicetest.c's
// test_cpu_times: the snapshot sysgetcputimes/"ps" reads lists every
// live process (idle included) with its pid and a detailed state
// string, and omits recycled/stopped slots.
func TestCPUTimesReportsLiveProcesses(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var snap ProcessStatuses
	var childPid int

	child := func(p *Proc) {
		p.Sleep(100000) // long enough to still be alive when root samples
	}
	root := func(p *Proc) {
		childPid = p.Create(child, DefaultStackSize)
		p.Yield()
		p.CPUTimes(&snap)
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(root, DefaultStackSize))
	startDispatcher(t, k)
	awaitOrFail(t, done, "cpu times snapshot")

	found := false
	for i := 0; i < snap.Count; i++ {
		if snap.Entries[i].Pid == childPid {
			found = true
			assert.Equal(t, "BLOCKED:SLEEPING", snap.Entries[i].State)
		}
	}
	assert.True(t, found, "sleeping child should appear in the process snapshot")
	assert.GreaterOrEqual(t, snap.Count, 3, "idle plus at least root and child should be live")
}

// TestPreemptionAlternatesSleepers mirrors preemptiontest.c: two
// processes that repeatedly sleep for the same short duration, woken
// only by clock ticks, both complete every round. It checks the total
// number of rounds logged and that both sleepers appear in the log; it
// does not check the order in which their rounds interleave.
func TestPreemptionAlternatesSleepers(t *testing.T) {
	k := testKernel(t)
	done := make(chan struct{})
	var log []string

	const rounds = 5
	makeSleeper := func(name string) func(p *Proc) {
		return func(p *Proc) {
			for i := 0; i < rounds; i++ {
				log = append(log, name)
				p.Sleep(10)
			}
		}
	}

	root := func(p *Proc) {
		aPid := p.Create(makeSleeper("a"), DefaultStackSize)
		bPid := p.Create(makeSleeper("b"), DefaultStackSize)
		p.Wait(aPid)
		p.Wait(bPid)
		close(done)
	}
	require.NotEqual(t, CreateFailure, k.Boot(root, DefaultStackSize))
	startDispatcher(t, k)

	go func() {
		for i := 0; i < rounds*2+2; i++ {
			k.Tick()
			time.Sleep(time.Millisecond)
		}
	}()

	awaitOrFail(t, done, "preemption alternation")

	assert.Len(t, log, rounds*2)
	sawA, sawB := false, false
	for _, entry := range log {
		if entry == "a" {
			sawA = true
		}
		if entry == "b" {
			sawB = true
		}
	}
	assert.True(t, sawA && sawB, "both sleepers should have made progress")
}

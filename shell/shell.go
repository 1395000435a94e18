package shell

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HermanDhak/XerosKernel/kernel"
)

// alarmSignalNum is the signal slot the "a" command's one-shot alarm
// uses, distinct from kernel.KillSignalNum, matching user.c's literal
// 15 passed to syssighandler.
const alarmSignalNum = 15

var commandArg string

// Shell is the interactive command loop, the Go analogue of user.c's
// shell(): read a line from the keyboard, dispatch one of a handful of
// built-in commands, and optionally wait for it before prompting again.
func Shell(p *kernel.Proc) {
	p.Puts("\n")
	fd := p.Open(kernel.DevKeyboardEcho)

	for {
		buf := make([]byte, 100)
		p.Puts("> ")
		n := p.Read(fd, buf)
		if n == 0 {
			break
		}
		line := filterNewline(buf, n)

		command, arg, background := getCommand(line)

		wait := true
		pid := 0

		switch command {
		case "t":
			pid = p.Create(commandT, kernel.DefaultStackSize)
			wait = !background
		case "ps":
			pid = p.Create(commandPS, kernel.DefaultStackSize)
		case "a":
			commandArg = arg
			pid = p.Create(commandA, kernel.DefaultStackSize)
		case "k":
			pidToKill, _ = strconv.Atoi(arg)
			pid = p.Create(commandK, kernel.DefaultStackSize)
		case "ex":
			p.Puts("Logging out...\n")
			p.Close(fd)
			return
		case "":
			// blank line, nothing to do
			wait = false
		default:
			p.Puts("Invalid command!\n")
			wait = false
		}

		if wait && pid > 0 {
			p.Wait(pid)
		}
	}

	p.Puts("Logging out...\n")
	p.Close(fd)
}

// getCommand mirrors user.c's get_command: the first whitespace-
// delimited token is the command, the second is its single argument,
// and a trailing '&' (with or without surrounding space) requests a
// background run.
func getCommand(line string) (command, arg string, background bool) {
	trimmed := strings.TrimRight(line, " ")
	if strings.HasSuffix(trimmed, "&") {
		background = true
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, "&"), " ")
	}
	fields := strings.Fields(trimmed)
	if len(fields) > 0 {
		command = fields[0]
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return command, arg, background
}

var pidToKill int

// commandPS implements command_ps: list every live process's pid,
// detailed state, and accumulated CPU ticks.
func commandPS(p *kernel.Proc) {
	var ps kernel.ProcessStatuses
	p.CPUTimes(&ps)

	p.Puts("PID | State           | Time\n")
	for i := 0; i < ps.Count; i++ {
		e := ps.Entries[i]
		p.Puts(fmt.Sprintf("%4d  %16s  %8d\n", e.Pid, e.State, e.CPUTicks))
	}
}

// commandK implements command_k: signal-kill the pid the shell parsed,
// refusing pid 0 (also the result of an unparsable argument), matching
// the original's pid_to_kill == 0 guard. In this kernel the idle process
// occupies PCB slot 0 with pid 1, which this guard does not refuse.
func commandK(p *kernel.Proc) {
	if pidToKill == 0 {
		p.Puts("Cannot terminate idle proc.\n")
		return
	}
	if ret := p.Kill(pidToKill, kernel.KillSignalNum); ret != kernel.OK {
		p.Puts("No such process.\n")
	}
}

// commandAHandler implements command_a_handler: the one-shot alarm
// handler fires, announces itself, and uninstalls itself.
func commandAHandler(p *kernel.Proc) {
	p.Puts("ALARM ALARM ALARM\n")
	var old kernel.SignalHandler
	p.SigHandler(alarmSignalNum, nil, &old)
}

// commandA implements command_a: install an alarm handler, sleep for
// the requested number of clock ticks, then self-signal to fire it.
func commandA(p *kernel.Proc) {
	sleepArg, err := strconv.Atoi(commandArg)
	if err != nil || sleepArg <= 0 {
		p.Puts("Usage: Enter SLEEP_MILLIS\n")
		return
	}

	var old kernel.SignalHandler
	p.SigHandler(alarmSignalNum, func(ctx *kernel.SignalContext) {
		commandAHandler(p)
	}, &old)
	p.Sleep(kernel.MsPerClockTick * sleepArg)
	p.Kill(p.GetPid(), alarmSignalNum)
}

// commandT implements command_t: print "T" every ten seconds forever.
func commandT(p *kernel.Proc) {
	for {
		p.Puts("T\n")
		p.Sleep(10000)
	}
}

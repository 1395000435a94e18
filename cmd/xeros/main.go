// Command xeros boots the kernel against the host terminal: it puts
// the terminal into raw mode (grounded on smoynes-elsie's use of
// golang.org/x/term to feed a simulated device byte by byte), starts a
// 100Hz ticker and a stdin-reading goroutine, creates the root process,
// and runs the dispatcher. Nothing here calls Shutdown, so the
// dispatcher runs until the program is killed: logging out returns to
// root's login prompt, and stdin EOF only ends the reader goroutine.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/HermanDhak/XerosKernel/kernel"
	"github.com/HermanDhak/XerosKernel/shell"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to a YAML kernel config overriding the defaults")
	memSize := pflag.Int("mem-size", 0, "override the simulated heap arena size in bytes (0 keeps the config/default value)")
	tickMs := pflag.Int("tick-ms", 0, "override the clock tick period in milliseconds (0 keeps the config/default value)")
	rawTerminal := pflag.Bool("raw-terminal", true, "put the host terminal into raw mode so keystrokes reach the keyboard driver one at a time")
	pflag.Parse()

	cfg, err := kernel.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "xeros:", err)
		os.Exit(1)
	}
	if *memSize > 0 {
		cfg.MemSize = *memSize
	}
	if *tickMs > 0 {
		cfg.TickMs = *tickMs
	}

	logger := kernel.NewLogger(os.Stderr)

	var restore func()
	if *rawTerminal && term.IsTerminal(int(os.Stdin.Fd())) {
		oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			logger.Warn("failed to enter raw terminal mode", "error", err)
		} else {
			restore = func() { term.Restore(int(os.Stdin.Fd()), oldState) }
			defer restore()
		}
	}

	k := kernel.NewKernel(cfg, os.Stdout, logger)

	creds := shell.Credentials{User: cfg.ShellUser, Pass: cfg.ShellPass}
	rootPid := k.Boot(func(p *kernel.Proc) {
		shell.Root(p, creds)
	}, kernel.DefaultStackSize)
	if rootPid == kernel.CreateFailure {
		logger.Error("failed to create root process")
		os.Exit(1)
	}
	logger.Info("booted", "root_pid", rootPid, "mem_size", cfg.MemSize, "tick_ms", cfg.TickMs)

	go runTicker(k, time.Duration(cfg.TickMs)*time.Millisecond)
	go runStdinReader(k)

	k.Run()
}

// runTicker drives the clock at the configured rate forever; Tick is
// safe to call from any goroutine since it only ever enqueues an event
// for the dispatcher goroutine to process.
func runTicker(k *kernel.Kernel, period time.Duration) {
	if period <= 0 {
		period = time.Duration(kernel.MsPerClockTick) * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for range ticker.C {
		k.Tick()
	}
}

// runStdinReader feeds every byte the host terminal produces to the
// keyboard driver as an already-decoded character — see
// Keyboard.DeliverByte's doc comment for why this port skips scancode
// re-derivation for terminal input.
func runStdinReader(k *kernel.Kernel) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			k.KeyByte(buf[0])
		}
		if err != nil {
			return
		}
	}
}

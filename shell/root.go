// Package shell implements the root login loop and interactive shell,
// the Go analogue of user.c's root()/shell() pair.
package shell

import (
	"strings"

	"github.com/HermanDhak/XerosKernel/kernel"
)

// Credentials lets cmd/xeros hand root the configured login instead of
// the compiled-in defaults user.c used.
type Credentials struct {
	User string
	Pass string
}

// Root authenticates a user against the keyboard device in a loop,
// launching Shell as a child process and waiting for it to exit before
// prompting again, mirroring root()'s while(1) login loop.
func Root(p *kernel.Proc, creds Credentials) {
	for {
		p.Puts("Welcome to Xeros - an experimental OS\n")

		fd := p.Open(kernel.DevKeyboardEcho)

		p.Puts("Username: ")
		userBuf := make([]byte, 80)
		n := p.Read(fd, userBuf)
		user := filterNewline(userBuf, n)

		p.Ioctl(fd, kernel.IoctlDisableEcho)

		p.Puts("Password: ")
		passBuf := make([]byte, 80)
		n = p.Read(fd, passBuf)
		pass := filterNewline(passBuf, n)

		p.Close(fd)

		if user == creds.User && pass == creds.Pass {
			shellPid := p.Create(Shell, kernel.DefaultStackSize)
			p.Wait(shellPid)
		} else {
			p.Puts("\nInvalid username and/or password!\n\n")
		}
	}
}

// filterNewline mirrors filter_newline: truncate at the first newline
// n bytes were actually read into buf, so this never reads past what
// Read reported.
func filterNewline(buf []byte, n int) string {
	if n < 0 {
		n = 0
	}
	if n > len(buf) {
		n = len(buf)
	}
	s := string(buf[:n])
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

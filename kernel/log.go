package kernel

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger builds the structured logger the dispatcher and cmd/xeros
// use for boot and fault messages, grounded on doismellburning-samoyed's
// use of github.com/charmbracelet/log for its daemon's own run log.
// This is kept entirely separate from k.stdout, which carries the
// simulated console/keyboard-echo byte stream a shell user actually
// reads.
func NewLogger(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "xeros",
	})
}

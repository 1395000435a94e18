package kernel

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the kernel's boot-time configuration, the Go analogue of
// the #define constants scattered through xeroskernel.h (MEMSIZE,
// HOLESTART, HOLEEND, the default EOF character) gathered into one
// loadable document instead, following the pack's convention (grounded
// on doismellburning-samoyed, which loads its radio/daemon settings
// from a YAML file via gopkg.in/yaml.v3 rather than compiled-in
// constants).
type Config struct {
	MemSize     int    `yaml:"mem_size"`
	HoleStart   int    `yaml:"hole_start"`
	HoleEnd     int    `yaml:"hole_end"`
	TickMs      int    `yaml:"tick_ms"`
	KeyboardEOF byte   `yaml:"keyboard_eof"`
	ShellUser   string `yaml:"shell_user"`
	ShellPass   string `yaml:"shell_pass"`
}

// DefaultConfig mirrors the original's compiled-in constants: a 1MiB
// arena with a 384KiB BIOS hole starting at 512KiB, a 10ms tick (the
// original's TIMER_TICK rate), ^D as EOF, and the textbook's well-known
// root credentials.
func DefaultConfig() Config {
	return Config{
		MemSize:     1 << 20,
		HoleStart:   512 * 1024,
		HoleEnd:     512*1024 + 384*1024,
		TickMs:      MsPerClockTick,
		KeyboardEOF: DefaultEOFChar,
		ShellUser:   "cs415",
		ShellPass:   "EveryonegetsanA",
	}
}

// LoadConfig reads a YAML document at path over DefaultConfig, so a
// boot config only needs to mention the fields it overrides.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading kernel config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing kernel config %q: %w", path, err)
	}
	return cfg, nil
}

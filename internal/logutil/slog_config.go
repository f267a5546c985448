package logutil

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// SlogConfig implements slog.Leveler. Each verbosity step lowers the
// level by one slog level from slog.LevelError. A valid level name in
// the LOG environment variable takes precedence.
type SlogConfig struct {
	Verbosity int
	LevelEnv  string
}

var _ slog.Leveler = new(SlogConfig)

// AddFlags adds the flags that configure the SlogConfig to the given flag set.
func (c *SlogConfig) AddFlags(flags *pflag.FlagSet) {
	flags.CountVarP(&c.Verbosity, "verbose", "V", "Verbosity for logging, repeat for more")
}

// Level implements slog.Leveler.
func (c *SlogConfig) Level() slog.Level {
	levelEnv := c.LevelEnv
	if levelEnv == "" {
		levelEnv = "LOG"
	}

	if s := strings.TrimSpace(os.Getenv(levelEnv)); s != "" {
		var level slog.Level
		if err := level.UnmarshalText([]byte(s)); err == nil {
			return level
		}
	}

	return slog.Level(int(slog.LevelError) - 4*c.Verbosity)
}

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap/zapcore"
)

// LoggerConfig selects level, encoding and destination of the service log.
// The values come from the service configuration (LOG_LEVEL, LOG_FORMAT,
// LOG_OUTPUT_FILE).
type LoggerConfig struct {
	Level      string
	Format     string
	OutputFile string
}

// ToZapLevel converts Level. Unknown levels log at info.
func (c *LoggerConfig) ToZapLevel() zapcore.Level {
	name := strings.ToLower(strings.TrimSpace(c.Level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zapcore.ParseLevel(name)
	if err != nil || lvl > zapcore.FatalLevel {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c *LoggerConfig) development() bool {
	return c.ToZapLevel() == zapcore.DebugLevel
}

func (c *LoggerConfig) encoding() string {
	switch strings.ToLower(c.Format) {
	case "console", "text":
		return "console"
	default:
		return "json"
	}
}

// paths returns zap output and error-output paths. A file destination is
// mirrored to stdout; if its directory cannot be created the log goes to
// stdout only.
func (c *LoggerConfig) paths() (out, errOut []string) {
	switch c.OutputFile {
	case "", "stdout":
		return []string{"stdout"}, []string{"stderr"}
	case "stderr":
		return []string{"stderr"}, []string{"stderr"}
	}
	dir := filepath.Dir(c.OutputFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create log directory '%s', defaulting to stdout. Error: %v\n", dir, err)
		return []string{"stdout"}, []string{"stderr"}
	}
	return []string{c.OutputFile, "stdout"}, []string{c.OutputFile, "stderr"}
}

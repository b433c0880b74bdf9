// Package logging routes loggo output away from the terminal the UI owns.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/loggo"
)

// Setup sends all module loggers to the file at path at the given level
// (TRACE, DEBUG, INFO, WARNING, ERROR). The returned closer flushes the file.
func Setup(path, level string) (io.Closer, error) {
	lvl, ok := loggo.ParseLevel(strings.TrimSpace(level))
	if !ok {
		return nil, fmt.Errorf("logging: unknown level %q", level)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	Configure(f, lvl)
	return f, nil
}

// Configure replaces the default writer with w and sets the root level.
func Configure(w io.Writer, lvl loggo.Level) {
	loggo.ReplaceDefaultWriter(loggo.NewSimpleWriter(w, formatter))
	loggo.GetLogger("").SetLogLevel(lvl)
}

func formatter(entry loggo.Entry) string {
	ts := entry.Timestamp.In(time.UTC).Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s %s %s %s", ts, entry.Level, entry.Module, entry.Message)
}

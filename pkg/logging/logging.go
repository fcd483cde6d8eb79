// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

const logFile = "visitdesk.log"

// New logs to w. verbosity enables V(1) and V(2) messages.
func New(w io.Writer, verbosity int) logr.Logger {
	stdr.SetVerbosity(verbosity)
	return stdr.NewWithOptions(log.New(w, "", log.LstdFlags), stdr.Options{LogCaller: stdr.Error})
}

// OpenFile appends to the log file in dir, for when the terminal belongs to
// the TUI. Close the returned file on exit.
func OpenFile(dir string, verbosity int) (logr.Logger, *os.File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return logr.Discard(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, logFile), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return logr.Discard(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(f, verbosity), f, nil
}

// Package dial hands phone numbers to the platform's tel: handler.
package dial

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
)

var telNoise = regexp.MustCompile(`[\s\-.()]`)

// TelURI strips spaces, dashes, dots and parentheses and returns a tel: URI.
func TelURI(raw string) string {
	return "tel:" + telNoise.ReplaceAllString(raw, "")
}

// Dialer opens a tel: URI for number.
type Dialer interface {
	Dial(ctx context.Context, number string) error
}

// Launcher starts the desktop opener for the current platform.
type Launcher struct {
	// GOOS overrides runtime.GOOS.
	GOOS string
	// Run starts the command; defaults to exec.CommandContext(...).Start.
	Run func(ctx context.Context, name string, args ...string) error
}

func (l Launcher) Dial(ctx context.Context, number string) error {
	uri := TelURI(strings.TrimSpace(number))
	if uri == "tel:" {
		return errors.New("no phone number")
	}
	name, args, err := opener(l.goos(), uri)
	if err != nil {
		return err
	}
	run := l.Run
	if run == nil {
		run = start
	}
	if err := run(ctx, name, args...); err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return nil
}

func (l Launcher) goos() string {
	if l.GOOS != "" {
		return l.GOOS
	}
	return runtime.GOOS
}

func opener(goos, uri string) (string, []string, error) {
	switch goos {
	case "darwin":
		return "open", []string{uri}, nil
	case "windows":
		return "cmd", []string{"/c", "start", "", uri}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", []string{uri}, nil
	default:
		return "", nil, errors.New("unsupported platform: " + goos)
	}
}

func start(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

var _ Dialer = Launcher{}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/visitdesk/pkg/auth"
	"github.com/harrisonrobin/visitdesk/pkg/config"
	"github.com/harrisonrobin/visitdesk/pkg/dial"
	"github.com/harrisonrobin/visitdesk/pkg/logging"
	"github.com/harrisonrobin/visitdesk/pkg/session"
	"github.com/harrisonrobin/visitdesk/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive interface (same as default)",
	Long: `Start the terminal interface: sign in, search and sort visitors, open a
record and dial a visitor's phone.

Logs go to ~/.config/visitdesk/visitdesk.log while the interface is open.`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	dir, err := config.Dir()
	if err != nil {
		return fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	log, f, err := logging.OpenFile(dir, verbosity)
	if err != nil {
		return err
	}
	defer f.Close()

	a, err := newApp(log)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		log.Info("ignoring unreadable preferences", "error", err.Error())
		cfg = &config.Config{}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go a.auth.AutoRefresh(ctx, auth.AutoRefreshInterval)

	err = tui.Run(tui.Deps{
		Auth:       a.auth,
		Visitors:   a.visitors,
		Dialer:     dial.Launcher{},
		Gate:       session.NewGate(log),
		Config:     cfg,
		SaveConfig: config.Save,
		Log:        log,
		Ctx:        ctx,
	})
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

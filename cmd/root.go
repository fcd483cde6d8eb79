package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/auth"
	"github.com/harrisonrobin/visitdesk/pkg/config"
	"github.com/harrisonrobin/visitdesk/pkg/format"
	"github.com/harrisonrobin/visitdesk/pkg/logging"
	"github.com/harrisonrobin/visitdesk/pkg/rest"
	"github.com/harrisonrobin/visitdesk/pkg/securestore"
	"github.com/harrisonrobin/visitdesk/pkg/visitors"
)

var (
	backendURL string
	anonKey    string
	table      string
	envFile    string
	verbosity  int
)

var rootCmd = &cobra.Command{
	Use:   "visitdesk",
	Short: "Browse visitor records from the terminal",
	Long: `visitdesk signs you in with an emailed one-time code and lets you search,
sort and open visitor records held behind a Supabase-style backend.

Running it without a command starts the interactive interface.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initFormat)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&backendURL, "url", "", "backend URL (overrides SUPABASE_URL)")
	flags.StringVar(&anonKey, "anon-key", "", "public API key (overrides SUPABASE_ANON_KEY)")
	flags.StringVar(&table, "table", "", "visitor table (overrides VISITORS_TABLE)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to read before the environment")
	flags.CountVarP(&verbosity, "verbose", "v", "log more detail (repeatable)")

	rootCmd.SilenceErrors = true
}

func initFormat() {
	format.SetDefault(format.Formatter{Tag: format.LocaleFromEnv(), Location: time.Local})
}

// app holds the clients a command works with.
type app struct {
	log      logr.Logger
	auth     *auth.Client
	visitors *visitors.Service
}

// resolveBackend merges the env file, the environment and the flags, in
// increasing priority.
func resolveBackend() (config.Backend, error) {
	b, err := config.LoadEnv(envFile)
	if err != nil {
		return config.Backend{}, err
	}
	if backendURL != "" {
		b.URL = backendURL
	}
	if anonKey != "" {
		b.AnonKey = anonKey
	}
	if table != "" {
		b.Table = table
	}
	if err := b.Validate(); err != nil {
		return config.Backend{}, err
	}
	return b, nil
}

func newApp(log logr.Logger) (*app, error) {
	b, err := resolveBackend()
	if err != nil {
		return nil, err
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, fmt.Errorf("could not find path to configuration directory: %w", err)
	}
	// Without storage the session lasts for this run only.
	var storage auth.Storage
	store, err := securestore.New(dir, log)
	if err != nil {
		log.V(1).Info("secure storage unavailable", "kind", apperr.StorageAccess.String(), "error", err.Error())
	} else {
		storage = store
	}
	ac, err := auth.NewClient(auth.Options{URL: b.URL, AnonKey: b.AnonKey, Storage: storage, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth client: %w", err)
	}
	rc, err := rest.NewClient(rest.Options{URL: b.URL, AnonKey: b.AnonKey, TokenSource: ac, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("failed to create data client: %w", err)
	}
	return &app{
		log:      log,
		auth:     ac,
		visitors: visitors.NewService(rc, b.Table, log),
	}, nil
}

// stderrLogger is the logger for commands that leave the terminal alone.
func stderrLogger(w io.Writer) logr.Logger {
	return logging.New(w, verbosity)
}

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/visitdesk/pkg/apperr"
	"github.com/harrisonrobin/visitdesk/pkg/auth"
	"github.com/harrisonrobin/visitdesk/pkg/config"
)

var (
	loginEmail string
	loginCode  string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an emailed one-time code",
	Long: `Send a sign-in code to --email, then verify it. Pass --code to verify a code
that was already sent; otherwise the code is read from standard input.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "email address (defaults to the last one used)")
	loginCmd.Flags().StringVarP(&loginCode, "code", "c", "", "one-time code or link token already received")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderrLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		a.log.Info("ignoring unreadable preferences", "error", err.Error())
		cfg = &config.Config{}
	}

	email := auth.NormalizeEmail(loginEmail)
	if email == "" {
		email = cfg.LastEmail
	}
	if email == "" {
		return errors.New("an email address is required (--email)")
	}

	ctx := cmd.Context()
	code := strings.TrimSpace(loginCode)
	if code == "" {
		if err := a.auth.SignInWithOTP(ctx, email, true); err != nil {
			return displayError(err, apperr.AuthRequest)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sign-in code sent to %s\nCode: ", email)
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read code: %w", err)
		}
		code = strings.TrimSpace(line)
		if code == "" {
			return errors.New("no code entered")
		}
	}

	sess, err := a.auth.VerifyOTP(ctx, email, code)
	if err != nil {
		return displayError(err, apperr.AuthVerify)
	}

	cfg.LastEmail = email
	if err := config.Save(cfg); err != nil {
		a.log.Info("preferences not saved", "error", err.Error())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sessionEmail(sess, email))
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderrLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	if err := a.auth.SignOut(cmd.Context()); err != nil {
		// The local session is gone either way.
		a.log.Info("sign-out did not reach the server", "error", err.Error())
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := newApp(stderrLogger(cmd.ErrOrStderr()))
	if err != nil {
		return err
	}
	sess, err := a.auth.GetSession(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	out := cmd.OutOrStdout()
	if sess == nil {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}
	fmt.Fprintf(out, "Signed in as %s\n", sessionEmail(sess, ""))
	if exp := sess.Expiry(); !exp.IsZero() {
		fmt.Fprintf(out, "Session expires %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}

func sessionEmail(sess *auth.Session, fallback string) string {
	if sess != nil && sess.User.Email != "" {
		return sess.User.Email
	}
	if fallback == "" {
		return "(unknown)"
	}
	return fallback
}

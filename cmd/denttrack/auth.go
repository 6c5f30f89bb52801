package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/ui"
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	GroupID: "sync",
	Short:   "Sign in to and out of your cloud account",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with your identity provider",
	Long: `Open the provider's sign-in page and wait for the redirect.

The redirect reaches this process through the callback inbox: the system URL
handler for the redirect scheme runs 'denttrack auth callback <url>', which
hands the URL over. When the sign-in completes, your account's records replace
the local ones.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if offline {
			return errors.New("cannot sign in with --offline")
		}
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if !a.auth.Configured() {
			return errors.New("sign-in is not configured: set remote.url and remote.anon_key")
		}
		if sess, ok := a.auth.Session(); ok {
			fmt.Fprintf(cmd.OutOrStdout(), "Already signed in as %s\n", sess.Email)
			return nil
		}

		done := make(chan auth.Event, 1)
		unsubscribe := a.auth.Subscribe(func(ev auth.Event) {
			if ev.Type == auth.EventSignedIn || ev.Type == auth.EventSignInFailed {
				select {
				case done <- ev:
				default:
				}
			}
		})
		defer unsubscribe()

		url, err := a.auth.SignIn(ctx)
		if err != nil {
			return err
		}

		inbox := auth.NewInbox(a.cfg.InboxDir(), a.auth.CompleteSignIn, a.logger.Named("inbox"))
		if err := inbox.Start(ctx); err != nil {
			_ = a.auth.CancelSignIn()
			return err
		}
		defer func() { _ = inbox.Stop() }()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Continue in your browser:\n  %s\n\n", url)
		fmt.Fprintln(out, ui.Muted("Waiting for sign-in. If the redirect does not come back, run:"))
		fmt.Fprintln(out, ui.Muted("  denttrack auth callback '<redirect url>'"))

		select {
		case ev := <-done:
			if ev.Type == auth.EventSignInFailed {
				return fmt.Errorf("sign-in failed: %w", ev.Err)
			}
			col := a.coord.Collections()
			fmt.Fprintf(out, "%s Signed in as %s (%d treatments, %d dentists)\n",
				ui.OK("✓"), ev.Session.Email, len(col.Treatments), len(col.Dentists))
			return nil
		case <-ctx.Done():
			_ = a.auth.CancelSignIn()
			return errors.New("sign-in cancelled")
		}
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out; local records are kept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if _, ok := a.auth.Session(); !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
			return nil
		}
		if err := a.auth.SignOut(ctx); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s Signed out. Local records are kept.\n", ui.OK("✓"))
		return nil
	},
}

var authCallbackCmd = &cobra.Command{
	Use:   "callback <url>",
	Short: "Hand a sign-in redirect to the waiting process",
	Long: `Hand a sign-in redirect URL to the process waiting in 'auth login' or
'live'. Register this command as the handler of the redirect URL scheme.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := auth.Deliver(cfg.InboxDir(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Sign-in callback delivered.")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		state, sess := a.auth.State()
		if jsonOutput {
			out := map[string]any{"state": state.String(), "configured": a.auth.Configured()}
			if sess != nil {
				out["user_id"] = sess.UserID
				out["email"] = sess.Email
				out["expires_at"] = sess.ExpiresAt
			}
			return outputJSON(cmd, out)
		}

		pairs := []string{"state", state.String()}
		if !a.auth.Configured() {
			pairs = append(pairs, "provider", ui.Muted("not configured"))
		}
		if sess != nil {
			pairs = append(pairs, "user", sess.Email, "user id", sess.UserID)
			if !sess.ExpiresAt.IsZero() {
				pairs = append(pairs, "expires", sess.ExpiresAt.Local().Format(time.RFC1123))
			}
		}
		fmt.Fprint(cmd.OutOrStdout(), ui.KeyValues(pairs...))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authLogoutCmd, authCallbackCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

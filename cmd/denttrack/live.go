package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/denttrack/denttrack/internal/auth"
	"github.com/denttrack/denttrack/internal/live"
	"github.com/spf13/cobra"
)

var liveCmd = &cobra.Command{
	Use:     "live",
	GroupID: "advanced",
	Short:   "Serve the record over WebSocket with live updates",
	Long: `Start a local server publishing the record.

Endpoints:
  /ws           WebSocket: a snapshot on connect, then a collections
                message after every change
  /collections  current record as JSON
  /health       server status

While running, sign-in callbacks delivered with 'denttrack auth callback'
complete here, and the account's records are pushed to connected clients.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		port := a.cfg.Live.Port
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}

		server := live.NewServer(a.coord, live.Config{Port: port, Logger: a.logger.Named("live")})
		a.coord.Subscribe(server.OnChange)
		if err := server.Start(); err != nil {
			return err
		}
		defer func() { _ = server.Stop() }()

		if a.auth.Configured() {
			inbox := auth.NewInbox(a.cfg.InboxDir(), a.auth.CompleteSignIn, a.logger.Named("inbox"))
			if err := inbox.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = inbox.Stop() }()
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Live server on http://%s\n", server.Addr())
		fmt.Fprintf(out, "WebSocket endpoint: ws://%s/ws\n", server.Addr())
		fmt.Fprintln(out, "\nPress Ctrl+C to stop...")

		<-ctx.Done()
		fmt.Fprintln(out, "\nShutting down live server...")
		return nil
	},
}

func init() {
	liveCmd.Flags().IntP("port", "p", 0, "Port to listen on (default live.port)")
	rootCmd.AddCommand(liveCmd)
}

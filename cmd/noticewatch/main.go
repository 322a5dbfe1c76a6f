package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/noticecast/pkg/client"
	"github.com/angelmondragon/noticecast/pkg/env"
	"github.com/angelmondragon/noticecast/pkg/logger"
)

const (
	envWatchURL   = "NOTICECAST_WATCH_URL"
	envWatchToken = "NOTICECAST_WATCH_TOKEN"
	defaultURL    = "http://localhost:8080"
)

type rootOptions struct {
	baseURL  string
	token    string
	logLevel string
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "noticewatch",
		Short: "Follow and manage noticecast notices from a terminal",
		Long: `noticewatch connects to a noticecast API as one session.

The watch command keeps a live session: it resolves the lock, promotion and
popup tiers, follows the push stream and prints what a screen would show.
The remaining commands cover the operator surface.

Examples:
  # Follow notices as the user behind the token
  NOTICECAST_WATCH_TOKEN=... noticewatch watch

  # Issue an urgent notice that locks every session
  noticewatch create --title "Maintenance" --body "Back at 10:00" --category URGENT

  # Remove it again
  noticewatch delete 42`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.baseURL, "url", env.Get(envWatchURL, defaultURL), "noticecast API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv(envWatchToken), "bearer access token")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug|info|warn|error)")

	root.AddCommand(
		newWatchCmd(opts),
		newRecentCmd(opts),
		newCreateCmd(opts),
		newDeleteCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

func (o *rootOptions) client() (*client.Client, error) {
	if o.token == "" {
		return nil, fmt.Errorf("missing access token: set --token or %s", envWatchToken)
	}
	return client.New(o.baseURL, o.token), nil
}

func (o *rootOptions) logger() *logger.Logger {
	return logger.New(logger.Options{
		ServiceName: "noticewatch",
		Level:       logger.ParseLevel(o.logLevel),
		Output:      os.Stderr,
	})
}


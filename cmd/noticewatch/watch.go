package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/noticecast/pkg/client"
	"github.com/angelmondragon/noticecast/pkg/db/models"
	"github.com/angelmondragon/noticecast/pkg/enums"
	"github.com/angelmondragon/noticecast/pkg/session"
)

type watchOptions struct {
	toastTTL  time.Duration
	reconnect time.Duration
}

func newWatchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live notice stream as one session",
		Long: `Follow the live notice stream as one session.

Screen changes are printed as they happen. While watching, these commands are
read from stdin:
  dismiss <id>   close the shown popup or interstitial, or a toast
  open <id>      open a toast and mark it read
  toasts         list visible toasts
  state          print the current screen state`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), root, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&opts.toastTTL, "toast-ttl", 8*time.Second, "how long passive toasts stay visible (0 keeps them until dismissed)")
	cmd.Flags().DurationVar(&opts.reconnect, "reconnect", 3*time.Second, "delay before reconnecting a dropped stream")
	return cmd
}

func runWatch(ctx context.Context, root *rootOptions, opts *watchOptions, in io.Reader, out io.Writer) error {
	apiClient, err := root.client()
	if err != nil {
		return err
	}
	logg := root.logger()

	machine := session.NewMachine(session.MachineParams{ToastTTL: opts.toastTTL})
	watcher, err := client.NewWatcher(client.WatcherParams{
		Client:         apiClient,
		Machine:        machine,
		Logger:         logg,
		ReconnectDelay: opts.reconnect,
		OnAction: func(action session.Action) {
			if line := formatAction(action); line != "" {
				fmt.Fprintln(out, line)
			}
		},
	})
	if err != nil {
		return err
	}

	go readCommands(ctx, watcher, in, out)

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func readCommands(ctx context.Context, watcher *client.Watcher, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if line := runCommand(ctx, watcher, scanner.Text()); line != "" {
			fmt.Fprintln(out, line)
		}
	}
}

func runCommand(ctx context.Context, watcher *client.Watcher, input string) string {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return ""
	}
	machine := watcher.Machine()

	switch fields[0] {
	case "state":
		if current := machine.Current(); current != nil {
			return fmt.Sprintf("state=%s notice=%d", machine.State(), current.ID)
		}
		return fmt.Sprintf("state=%s", machine.State())
	case "toasts":
		toasts := machine.Toasts()
		if len(toasts) == 0 {
			return "no toasts"
		}
		lines := make([]string, 0, len(toasts))
		for _, toast := range toasts {
			lines = append(lines, formatNotice("toast", toast.Notice))
		}
		return strings.Join(lines, "\n")
	case "dismiss", "open":
		if len(fields) != 2 {
			return fmt.Sprintf("usage: %s <id>", fields[0])
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Sprintf("invalid notice id %q", fields[1])
		}
		if fields[0] == "open" {
			notice, err := watcher.OpenToast(ctx, id)
			if err != nil {
				return fmt.Sprintf("open %d: %v", id, err)
			}
			return formatNotice("opened", *notice)
		}
		if machine.DismissToast(id) {
			return fmt.Sprintf("dismissed toast %d", id)
		}
		if err := watcher.Dismiss(ctx, id); err != nil {
			return fmt.Sprintf("dismiss %d: %v", id, err)
		}
		return fmt.Sprintf("dismissed %d", id)
	default:
		return fmt.Sprintf("unknown command %q", fields[0])
	}
}

func formatAction(action session.Action) string {
	switch action.Kind {
	case session.ActionLock:
		return formatNotice("LOCKED", *action.Notice)
	case session.ActionInterstitial:
		if action.Notice.Category == enums.NoticeCategoryPromo {
			return formatNotice("promotion", *action.Notice)
		}
		return formatNotice("popup", *action.Notice)
	case session.ActionToast:
		return formatNotice("toast", *action.Notice)
	case session.ActionClear:
		return "clear"
	default:
		return ""
	}
}

func formatNotice(label string, n models.Notice) string {
	line := fmt.Sprintf("[%s] #%d %s: %s", label, n.ID, n.Category, n.Title)
	if n.Body != "" {
		line += "\n    " + strings.ReplaceAll(n.Body, "\n", "\n    ")
	}
	if n.MediaURL != nil {
		line += "\n    media: " + *n.MediaURL
	}
	return line
}

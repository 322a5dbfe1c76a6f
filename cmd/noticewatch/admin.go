package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/noticecast/pkg/client"
)

func newRecentCmd(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "List the newest notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiClient, err := root.client()
			if err != nil {
				return err
			}
			items, err := apiClient.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, n := range items {
				fmt.Fprintln(cmd.OutOrStdout(), formatNotice(strings.ToLower(string(n.Category)), n))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of notices (0 uses the server default)")
	return cmd
}

type createOptions struct {
	request        client.CreateNoticeRequest
	idempotencyKey string
}

func newCreateCmd(root *rootOptions) *cobra.Command {
	opts := &createOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a notice (operators only)",
		Long: `Issue a notice and broadcast it to every connected session.

URGENT notices lock every user screen until deleted. PROMO notices open as an
interstitial. Other categories become toasts unless --forced-popup is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiClient, err := root.client()
			if err != nil {
				return err
			}
			opts.request.Category = strings.ToUpper(strings.TrimSpace(opts.request.Category))
			key := opts.idempotencyKey
			if key == "" {
				key = uuid.NewString()
			}
			created, err := apiClient.CreateNotice(cmd.Context(), opts.request, key)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), created)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&opts.request.Title, "title", "", "notice title")
	flags.StringVar(&opts.request.Body, "body", "", "notice body")
	flags.StringVar(&opts.request.Category, "category", "INFO", "INFO|SUCCESS|WARNING|URGENT|PROMO")
	flags.BoolVar(&opts.request.ForcedPopup, "forced-popup", false, "show as a blocking popup until read")
	flags.StringVar(&opts.request.MediaURL, "media-url", "", "image or video URL")
	flags.StringVar(&opts.request.MediaKind, "media-kind", "", "IMAGE|VIDEO")
	flags.StringVar(&opts.request.MediaMimeType, "media-mime-type", "", "media MIME type")
	flags.StringVar(&opts.idempotencyKey, "idempotency-key", "", "reuse a key to retry safely (default: random)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("body")
	return cmd
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <notice-id>",
		Short: "Delete a notice (operators only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid notice id %q", args[0])
			}
			apiClient, err := root.client()
			if err != nil {
				return err
			}
			deleted, err := apiClient.DeleteNotice(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "notice %d was already gone\n", id)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted notice %d\n", id)
			return nil
		},
	}
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var (
		limit  int
		cursor string
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Page through every notice (operators only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			apiClient, err := root.client()
			if err != nil {
				return err
			}
			page, err := apiClient.History(cmd.Context(), limit, cursor)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "page size (0 uses the server default)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "cursor from the previous page")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

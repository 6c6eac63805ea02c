package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwise1/skipvote_bot/config"
	deps "github.com/bwise1/skipvote_bot/internal/debs"
	"github.com/spf13/cobra"
)

// resolveCommand lets an operator resolve a vote whose trigger was lost. It
// goes through the same idempotent path as the trigger callback.
func resolveCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "resolve <tenant> <channel> <vote-id>",
		Short: "Resolve a skip vote now",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return err
			}
			d, err := deps.New(cfg, slog.Default())
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			out, err := d.Votes.Resolve(ctx, args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d up / %d down)\n", out.VoteID, out.Decision, out.Tally.Up, out.Tally.Down)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fpt/polyglot/internal/admin"
)

func newStatsCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show counters from a running relay",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap, err := admin.NewClient(nil, addr).Stats(cmd.Context())
			if err != nil {
				return errors.Wrapf(err, "admin server %s", addr)
			}
			out, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	defaultAddr := os.Getenv("POLYGLOT_ADMIN_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:7070"
	}
	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "Admin server address")
	return cmd
}

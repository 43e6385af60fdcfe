package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cybersentinel/internal/bootstrap"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <dataset.json|->",
		Short: "Check a dataset document against the schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readDataset(args[0])
			if err != nil {
				return err
			}
			d, err := bootstrap.Decode(raw)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "valid: intel=%d ssh_rows=%d apache_rows=%d alerts=%d trend_buckets=%d\n",
				len(d.IntelTable), len(d.SSHTable), len(d.ApacheTable), len(d.AlertsTable), len(d.SSHFailuresOverTime))
			return nil
		},
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"reviewprep/internal/services/pipeline/ingest"
)

func newVerifyCmd() *cobra.Command {
	v := ingest.NewVerifier()
	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check that cleaned files hold only well-formed records",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				res, err := v.Verify(cmd.Context(), path)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %d records, %d invalid\n", path, res.Records, res.Invalid)
					for _, lv := range res.Violations {
						fmt.Fprintf(cmd.OutOrStdout(), "  line %d %s: %s\n", lv.Line, lv.Path, lv.Reason)
					}
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %d records\n", path, res.Records)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().IntVar(&v.MaxViolations, "max-violations", 20, "violations to report per file")
	cmd.Flags().BoolVar(&v.AllowEmpty, "allow-empty", false, "accept files with no records")
	return cmd
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"reviewprep/internal/services/pipeline/domain"
	pmod "reviewprep/internal/services/pipeline/module"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run fetch, preprocess, verify and publish once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			deps, closeDeps, err := openDeps(ctx)
			if err != nil {
				return err
			}
			defer closeDeps()

			m, err := pmod.New(ctx, deps)
			if err != nil {
				return err
			}
			run, err := m.Runner().Run(ctx, "cli")
			printRun(cmd.OutOrStdout(), run)
			return err
		},
	}
}

func printRun(w io.Writer, run domain.Run) {
	if run.ID == "" {
		return
	}
	fmt.Fprintf(w, "run %s %s\n", run.ID, run.Status)
	for _, st := range run.Stages {
		line := fmt.Sprintf("  %-10s %-9s %-7s %3d  %9d rec %7d skip", st.Stage, st.Dataset, st.Status, st.Attempts, st.Records, st.Skipped)
		switch {
		case st.Err != "":
			line += "  " + st.Err
		case st.Detail != "":
			line += "  " + st.Detail
		}
		fmt.Fprintln(w, line)
	}
}

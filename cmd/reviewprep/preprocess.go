package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reviewprep/internal/modkit"
	"reviewprep/internal/platform/config"
	ppmod "reviewprep/internal/services/preprocess/module"
)

func newPreprocessCmd() *cobra.Command {
	var (
		workers int
		compact bool
	)
	cmd := &cobra.Command{
		Use:   "preprocess <input> <output>",
		Short: "Clean one JSONL file (plain or gzip) into a JSONL file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.New()
			opts := ppmod.FromConfig(cfg)
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}
			if cmd.Flags().Changed("compact") {
				opts.Compact = compact
			}
			p := ppmod.NewWithOptions(modkit.Deps{Cfg: cfg}, opts).Processor()

			res, err := p.Process(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d written, %d skipped, %d blank in %s\n",
				res.Input, res.Output, res.Written, res.Skipped, res.Blank, res.Elapsed.Round(time.Millisecond))
			for _, m := range res.Malformed {
				fmt.Fprintf(cmd.ErrOrStderr(), "  line %d: %s\n", m.Line, m.Err)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 1, "parallel transform workers")
	cmd.Flags().BoolVar(&compact, "compact", false, "write UTF-8 output without separator spaces")
	return cmd
}

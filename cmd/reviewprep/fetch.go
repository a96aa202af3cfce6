package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"reviewprep/internal/modkit"
	"reviewprep/internal/platform/config"
	"reviewprep/internal/platform/logger"
	"reviewprep/internal/services/pipeline/ingest"
	pmod "reviewprep/internal/services/pipeline/module"
)

func newFetchCmd() *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the raw datasets into the data dir",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.New()
			datasets, err := pmod.ResolveDatasets(pmod.FromConfig(cfg))
			if err != nil {
				return err
			}
			f := ingest.NewFetcher(modkit.Deps{Cfg: cfg})
			for _, ds := range datasets {
				if len(only) > 0 && !slices.Contains(only, ds.Name) {
					continue
				}
				d, err := f.Download(cmd.Context(), ds.URL, ds.RawPath)
				if err != nil {
					logger.C(cmd.Context()).Error().Err(err).Str("dataset", ds.Name).Msg("fetch failed")
					return err
				}
				state := "downloaded"
				if d.NotModified {
					state = "not modified"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-10s %-12s %12d bytes  %s\n", ds.Name, state, d.Bytes, d.Path)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "dataset", nil, "limit to the named datasets")
	return cmd
}

package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"reviewprep/internal/modkit/httpkit"
	phttp "reviewprep/internal/platform/net/http"
	pmod "reviewprep/internal/services/pipeline/module"
)

func newServeCmd() *cobra.Command {
	var (
		noSchedule bool
		pprof      bool
		grace      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and the status API until interrupted",
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

			// http server (reads RP_API_*)
			apiCfg := deps.Cfg.Prefix("RP_")
			srv := phttp.NewServer(apiCfg)
			r := srv.Router()
			r.Use(httpkit.CommonStack(httpkit.StackOptions{
				CORSOrigins: apiCfg.MayCSV("API_CORS_ORIGINS", nil),
				Timeout:     apiCfg.MayDuration("API_REQUEST_TIMEOUT", 60*time.Second),
				Slow:        apiCfg.MayDuration("API_SLOW_REQUEST", 500*time.Millisecond),
			})...)
			m.MountRoutes(r)
			phttp.MountProfiler(r, "/debug", pprof || apiCfg.MayBool("API_PPROF", false))

			if !noSchedule {
				m.Scheduler().Start(ctx)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx) })
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), grace)
				defer cancel()
				return errors.Join(srv.Shutdown(sctx), m.Scheduler().Stop(sctx))
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API without the cron trigger")
	cmd.Flags().BoolVar(&pprof, "pprof", false, "mount pprof under /debug")
	cmd.Flags().DurationVar(&grace, "grace", 30*time.Second, "shutdown grace period")
	return cmd
}

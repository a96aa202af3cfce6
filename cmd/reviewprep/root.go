package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"reviewprep/internal/modkit"
	"reviewprep/internal/platform/config"
	"reviewprep/internal/platform/logger"
	"reviewprep/internal/platform/store"
)

func newRootCmd() *cobra.Command {
	var (
		envFiles  []string
		logLevel  string
		logFormat string
	)
	root := &cobra.Command{
		Use:   "reviewprep",
		Short: "Normalize the Amazon Software review corpora into clean JSONL",
		Long: `reviewprep downloads the Amazon 2023 Software reviews and metadata,
rewrites every record into a clean shape and checks the result.

Configuration comes from the environment (RP_*, SERVICE_PGSQL_*) and an
optional .env file.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadEnv(envFiles, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}
			opt := logger.FromEnv()
			opt.Service = "reviewprep"
			if logLevel != "" {
				opt.Level = logLevel
			}
			if logFormat != "" {
				opt.Format = logFormat
			}
			logger.Init(opt)
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringSliceVar(&envFiles, "env-file", []string{".env"}, "env files to load; existing variables win")
	pf.StringVar(&logLevel, "log-level", "", "log level, overrides LOG_LEVEL")
	pf.StringVar(&logFormat, "log-format", "", "console or json, overrides LOG_FORMAT")

	root.AddCommand(
		newFetchCmd(),
		newPreprocessCmd(),
		newVerifyCmd(),
		newRunCmd(),
		newServeCmd(),
		newPreviewCmd(),
	)
	return root
}

// loadEnv reads env files; a missing default file is fine
func loadEnv(files []string, explicit bool) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if !explicit && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// openDeps builds module deps. Postgres is opened only when SERVICE_PGSQL_DBURL is set
func openDeps(ctx context.Context) (modkit.Deps, func(), error) {
	root := config.New()
	l := logger.Get()
	deps := modkit.Deps{Cfg: root, Log: *l}

	pgCfg := root.Prefix("SERVICE_PGSQL_")
	url := pgCfg.MayString("DBURL", "")
	if url == "" {
		return deps, func() {}, nil
	}
	st, err := store.Open(ctx, store.Config{
		AppName: "reviewprep",
		PG: store.PGConfig{
			Enabled:     true,
			URL:         url,
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		},
	}, store.WithLogger(*l))
	if err != nil {
		return deps, func() {}, err
	}
	deps.PG = st.PG
	return deps, func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}, nil
}

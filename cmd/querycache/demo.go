package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/bool64/stats"
	"github.com/honlinren/querycache/cache"
	"github.com/honlinren/querycache/examples"
	"github.com/spf13/cobra"
	"gorm.io/gorm/logger"
)

func demoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the cached user repository walkthrough and print cache counters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			log := newLogger(cmd)

			var (
				cfg *cache.Config
				err error
			)

			if path := flagOrEnv(cmd, "config", "QUERYCACHE_CONFIG", ""); path != "" {
				if cfg, err = cache.LoadConfig(path); err != nil {
					return err
				}
			}

			sqlLevel := logger.Silent
			if levelName(cmd) == "debug" {
				sqlLevel = logger.Info
			}

			db, err := examples.InitDatabase(examples.DatabaseConfig{
				Driver:   flagOrEnv(cmd, "driver", "QUERYCACHE_DRIVER", "sqlite"),
				DSN:      flagOrEnv(cmd, "dsn", "QUERYCACHE_DSN", "file::memory:"),
				LogLevel: sqlLevel,
			})
			if err != nil {
				return err
			}

			if err := db.WithContext(ctx).AutoMigrate(&examples.User{}); err != nil {
				return err
			}

			st := &stats.TrackerMock{}

			repo, err := examples.NewUserRepository(db, cfg, cache.WithLogger(log), cache.WithStats(st))
			if err != nil {
				return err
			}

			log.Info(ctx, "running demo", "driver", flagOrEnv(cmd, "driver", "QUERYCACHE_DRIVER", "sqlite"))

			out := cmd.OutOrStdout()
			if err := examples.RunDemo(ctx, repo, out); err != nil {
				return err
			}

			printCounters(out, st.Values())

			return nil
		},
	}

	cmd.Flags().String("driver", "", "database driver: sqlite or mysql (env QUERYCACHE_DRIVER)")
	cmd.Flags().String("dsn", "", "database DSN, defaults to in-memory sqlite (env QUERYCACHE_DSN)")
	cmd.Flags().String("config", "", "path to cache YAML config (env QUERYCACHE_CONFIG)")

	return cmd
}

func printCounters(w io.Writer, values map[string]float64) {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	sort.Strings(names)

	fmt.Fprintln(w, "cache counters:")

	for _, name := range names {
		fmt.Fprintf(w, "  %-18s %v\n", name, values[name])
	}
}

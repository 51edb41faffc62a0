package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/sukull/istikrar/routes"
	"github.com/sukull/istikrar/utils"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "istikrar",
		Short: "Daily streak and points service",
		Long: `istikrar keeps daily streaks and point baselines consistent with every point change.

Configuration is read from config/config.json, an optional .env file and the environment.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newDailyResetCommand())
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func newServeCommand() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if a.cfg.JWTSecret == "" {
				return errors.New("JWT secret is required: set JWT_SECRET or app.JWTSecret")
			}
			if port == "" {
				port = a.cfg.AppPort
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if a.cfg.DailyResetEnabled {
				sched := &utils.DailyScheduler{
					Name:     "daily-reset",
					Calendar: a.cal,
					Redis:    a.redis,
					Interval: time.Duration(a.cfg.DailyResetPollMinutes) * time.Minute,
					Job: func(ctx context.Context) error {
						_, err := a.maintenance.Run(ctx)
						return err
					},
				}
				sched.Start(ctx)
			}

			r := routes.SetupRouter(a.routerDeps())
			utils.Sugar.Infof("Starting server on port %s (graceful)", port)
			return utils.GraceServer(ctx, ":"+port, r, cancel)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default from config)")
	return cmd
}

func newDailyResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "daily-reset",
		Short: "Rebase every baseline, reset broken streaks and recompute school totals",
		Long: `Run the daily maintenance once. Meant for cron shortly after midnight in the
configured timezone. Running it twice on the same day is harmless.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.maintenance.Run(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			utils.Sugar.Infow("schema up to date", "driver", a.cfg.DBDriver)
			return nil
		},
	}
}

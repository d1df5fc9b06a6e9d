package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/Abraxas-365/relay-match/pkg/logx"
	"github.com/Abraxas-365/relay-match/recruitment/notification"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the notification workers and the cron scheduler",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		workers := container.NewWorker()
		workers.Start(ctx)

		if cfg.Schedule.Enabled {
			sched, err := container.NewScheduler()
			if err != nil {
				return err
			}
			if err := sched.Register(ctx); err != nil {
				return err
			}
			sched.Start()
			defer func() {
				stopCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
				defer cancel()
				sched.Stop(stopCtx)
			}()
		}

		<-ctx.Done()
		logx.Info("Stopping workers...")
		workers.Wait()
		return nil
	},
}

var incremental bool

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run one full or incremental batch match and exit",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		if incremental {
			report, err := container.MatchService.RunIncremental(ctx)
			if err != nil {
				return err
			}
			logx.Infof("Incremental run since %s done", report.Since.Format(time.RFC3339))
			return nil
		}

		report, err := container.MatchService.RunFullBatch(ctx)
		if err != nil {
			return err
		}
		s := report.Stats
		logx.Infof("Full batch: %d jobs, %d candidates, %d scored, %d fallbacks, %d failed, %d matches",
			s.Jobs, s.Candidates, s.Scored, s.Fallbacks, s.Failed, s.MatchesFound)
		return nil
	},
}

var digestCmd = &cobra.Command{
	Use:       "digest daily|weekly",
	Short:     "Send one digest pass to employers subscribed at the given frequency",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{string(notification.FrequencyDaily), string(notification.FrequencyWeekly)},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		container, err := NewContainer(ctx, cfg)
		if err != nil {
			return err
		}
		defer container.Close()

		report, err := container.Dispatcher.RunDigest(ctx, notification.Frequency(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s digest: %d sent, %d nothing to send, %d skipped, %d failed\n",
			report.Frequency, report.Sent, report.NothingToSend, report.Skipped, report.Failed)
		return nil
	},
}

func init() {
	batchCmd.Flags().BoolVar(&incremental, "incremental", false, "only match jobs and candidates created since the last run")
}

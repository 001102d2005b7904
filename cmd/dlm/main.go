package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/schalkdaniel/distributed-lm/internal/common"
	"github.com/schalkdaniel/distributed-lm/internal/coordinator"
	"github.com/schalkdaniel/distributed-lm/internal/events"
	"github.com/schalkdaniel/distributed-lm/internal/watch"
)

var (
	runDir   string
	logLevel string
)

func newLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "dlm",
		Level: hclog.LevelFromString(logLevel),
	})
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "dlm",
		Short:        "Coordinate federated training of a shared linear model over local data shards",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&runDir, "dir", "", "run directory holding the persisted state")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO", "log level")
	rootCmd.MarkPersistentFlagRequired("dir")

	rootCmd.AddCommand(newInitCmd(), newAdvanceCmd(), newStatusCmd(), newRunCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	cfg := coordinator.Config{}
	overwrite := false

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a fresh run",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := coordinator.Initialize(runDir, cfg, overwrite, newLogger(), nil)
			if err != nil {
				return err
			}
			defer run.Close()

			fmt.Println(run.Dir())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&cfg.Shards, "shard", nil, "shard data file (repeatable)")
	cmd.Flags().StringVar(&cfg.ModelTag, "model", common.MODEL_TAG_LINEAR, "model tag")
	cmd.Flags().StringVar(&cfg.OptimizerTag, "optimizer", common.OPTIMIZER_TAG_SGD, "optimizer tag")
	cmd.Flags().StringVar(&cfg.Formula, "formula", "", "model formula, e.g. \"y ~ x1 + x2\" or \"y ~ .\"")
	cmd.Flags().IntVar(&cfg.EpochBudget, "epochs", 100, "maximum cumulative local steps")
	cmd.Flags().Float64Var(&cfg.LearningRate, "learning-rate", 0.01, "learning rate")
	cmd.Flags().Float64Var(&cfg.Epsilon, "epsilon", 0.001, "relative loss improvement below which training stops")
	cmd.Flags().BoolVar(&cfg.RetainSnapshots, "retain-snapshots", false, "keep every round's snapshot for audit")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", 1, "seed for the initial parameter draw")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "discard any previously initialized run in the directory")
	cmd.MarkFlagRequired("shard")
	cmd.MarkFlagRequired("formula")

	return cmd
}

func newAdvanceCmd() *cobra.Command {
	steps := 1
	verbose := false

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Drive one coordination step",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := coordinator.Open(runDir, newLogger(), nil)
			if err != nil {
				return err
			}
			defer run.Close()

			outcome, err := run.Advance(steps, verbose)
			if err != nil {
				return err
			}

			fmt.Printf("progressed=%t completedRound=%t converged=%t iteration=%d averageLoss=%g\n",
				outcome.Progressed, outcome.CompletedRound, outcome.Converged, outcome.Iteration, outcome.AverageLoss)
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "local steps per round")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log per-shard progress")

	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the run's iteration, average loss and terminal flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := coordinator.Open(runDir, newLogger(), nil)
			if err != nil {
				return err
			}
			defer run.Close()

			status, err := run.Status()
			if err != nil {
				return err
			}

			fmt.Printf("iteration=%d averageLoss=%g done=%t\n", status.Iteration, status.AverageLoss, status.Done)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	steps := 1
	verbose := false
	interval := time.Second

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Advance in a loop until the run converges",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			eventBus := events.NewEventBus()

			run, err := coordinator.Open(runDir, logger, eventBus)
			if err != nil {
				return err
			}
			defer run.Close()

			shards, err := run.Shards()
			if err != nil {
				return err
			}

			roundCompletedChan := make(chan events.Event, len(shards))
			eventBus.Subscribe(common.ROUND_COMPLETED_EVENT_TYPE, roundCompletedChan)
			go func() {
				for event := range roundCompletedChan {
					completed := event.Data.(events.RoundCompletedEvent)
					logger.Info("round completed", "iteration", completed.Iteration, "averageLoss", completed.AverageLoss)
				}
			}()

			watcher := watch.NewShardWatcher(shards, eventBus, logger)
			watcher.Start()
			defer watcher.Stop()

			for {
				outcome, err := run.Advance(steps, verbose)
				if err != nil {
					return err
				}
				if outcome.Converged {
					logger.Info("run converged", "iteration", outcome.Iteration, "averageLoss", outcome.AverageLoss)
					return nil
				}
				if !outcome.Progressed {
					// Every missing shard is unreachable right now; wait
					// before probing again.
					time.Sleep(interval)
				}
			}
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "local steps per round")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log per-shard progress")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "wait between calls when no shard is reachable")

	return cmd
}

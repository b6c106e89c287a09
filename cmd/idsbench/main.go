// idsbench orchestrates intrusion-detection experiments: it executes
// declarative workflow descriptions (single actions, linear pipelines, and
// parametric loops) against an external toolchain and records every run in
// an append-only provenance trail.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"idsbench/internal/actions"
	"idsbench/internal/engine"
	"idsbench/internal/logging"
	"idsbench/internal/progress"
	"idsbench/internal/tracking"
	"idsbench/internal/workflow"
)

var (
	// Global flags
	verbose     bool
	keepConfigs bool
	headless    bool
	trackingDir string
	toolsDir    string

	// Logger, replaced by a configured logger in PersistentPreRunE.
	logger = zap.NewNop()
)

// rootCmd runs a workflow description end to end.
var rootCmd = &cobra.Command{
	Use:   "idsbench <workflow-description>",
	Short: "idsbench - experiment orchestrator for IDS research",
	Long: `idsbench executes declarative experiment workflows against an external
toolchain of dataset generators, trainers, and evaluators.

A workflow description (JSON or YAML) names a single action, a linear
pipeline of steps, or a parametric loop that expands one step sequence
over a value series (random seeds, attack selections, parameter sweeps,
or dual-attack combinations). Every run is recorded in flat CSV tables
under the tracking directory.

Exit codes: 0 success, 1 unknown or missing action, 2 config error,
3 action execution failure.`,
	Args:          usageArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		if err := logging.Initialize(cwd); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runWorkflow,
}

// queryCmd inspects the provenance trail.
var queryCmd = &cobra.Command{
	Use:   "query <table> <column> <value>",
	Short: "Query the provenance trail with an equality filter",
	Long: `Scans one tracking table and prints the rows whose column equals the
given value.

Tables: experiments, datasets, models, results, optimizer_results.

Example:
  idsbench query experiments status failed`,
	Args: usageArgs(3),
	RunE: runQuery,
}

// usageArgs tags argument-count failures as usage errors so they exit with
// code 1 rather than the action-failure default.
func usageArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return fmt.Errorf("%w: %v", actions.ErrUsage, err)
		}
		return nil
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&trackingDir, "tracking-dir", tracking.DefaultDir, "provenance trail directory")
	rootCmd.Flags().BoolVar(&keepConfigs, "keep-configs", false, "retain materialised step configs for debugging")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "suppress GUI behaviour in external tools")
	rootCmd.Flags().StringVar(&toolsDir, "tools-dir", "", "directory holding the toolchain binaries (default: PATH lookup)")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", actions.ErrUsage, err)
	})

	rootCmd.AddCommand(queryCmd)
}

func runWorkflow(cmd *cobra.Command, args []string) error {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	desc, err := workflow.Load(args[0])
	if err != nil {
		logger.Error("workflow rejected", zap.String("path", args[0]), zap.Error(err))
		return err
	}

	runtime := engine.NewRuntimeContext()
	runtime.KeepTempConfigs = keepConfigs
	if headless {
		runtime.Headless = true
	}

	tracker, err := tracking.New(trackingDir)
	if err != nil {
		return &actions.ConfigError{Path: trackingDir, Err: err}
	}

	toolset := &actions.ExternalToolset{Dir: toolsDir}
	if runtime.Headless {
		toolset.Env = []string{engine.HeadlessEnv + "=1"}
	}
	registry := actions.NewRegistry()
	actions.RegisterDefaults(registry, toolset.Toolset())

	var engineOpts []engine.Option
	if runtime.Headless {
		engineOpts = append(engineOpts, engine.WithProgressOptions(progress.WithPlainOutput()))
	}
	eng := engine.New(registry, tracker, runtime, engineOpts...)

	logger.Info("running workflow",
		zap.String("path", args[0]),
		zap.String("action", desc.Action),
		zap.String("tracking", trackingDir))
	if err := eng.Run(ctx, desc); err != nil {
		logger.Error("workflow failed", zap.String("path", args[0]), zap.Error(err))
		return err
	}
	logger.Info("workflow completed", zap.String("path", args[0]))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	table, column, value := args[0], args[1], args[2]

	tracker, err := tracking.New(trackingDir)
	if err != nil {
		return &actions.ConfigError{Path: trackingDir, Err: err}
	}

	rows, err := tracker.QueryDatabase(table, column, value)
	if err != nil {
		return &actions.WorkflowError{Msg: "query failed", Err: err}
	}
	columns, err := tracker.TableColumns(table)
	if err != nil {
		return &actions.WorkflowError{Msg: "query failed", Err: err}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.Join(columns, "\t"))
	for _, row := range rows {
		fields := make([]string, len(columns))
		for i, c := range columns {
			fields[i] = row[c]
		}
		fmt.Fprintln(out, strings.Join(fields, "\t"))
	}
	fmt.Fprintf(out, "%d row(s)\n", len(rows))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(actions.ExitCode(err))
	}
}

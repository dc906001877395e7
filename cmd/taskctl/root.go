package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironworks-mfg/taskcore/internal/config"
	"github.com/ironworks-mfg/taskcore/internal/executor"
	"github.com/ironworks-mfg/taskcore/internal/fixtask"
	"github.com/ironworks-mfg/taskcore/internal/logging"
	"github.com/ironworks-mfg/taskcore/internal/qc"
	"github.com/ironworks-mfg/taskcore/internal/routing"
	"github.com/ironworks-mfg/taskcore/internal/storage/sqlite"
)

var (
	rootCtx = context.Background()

	dbPath     string
	actor      string
	jsonOutput bool

	store     *sqlite.Storage
	exec      *executor.Executor
	fixtasks  *fixtask.Service
	qcService *qc.Service
	pool      *routing.Pool
)

var rootCmd = &cobra.Command{
	Use:   "taskctl",
	Short: "Operate the manufacturing task transition engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config show/init and taskctl's own --help never need a
		// database connection; skip bootstrap so they work before a
		// config.toml or database even exists. migrate opens the
		// database itself, under its cross-process lock.
		for c := cmd; c != nil; c = c.Parent() {
			if c.Name() == "config" || c.Name() == "migrate" {
				return nil
			}
		}
		return bootstrap()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
		if pool != nil {
			_ = pool.Close()
		}
	},
}

func init() {
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "taskctl: loading config: %v\n", err)
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.GetString("storage.path"), "path to the task database")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", os.Getenv("TASKCTL_ACTOR"), "actor ID performing this operation")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")

	rootCmd.AddCommand(taskCmd, fixtaskCmd, qcCmd, migrateCmd, configCmd)
}

func bootstrap() error {
	logger := logging.New(logging.Options{
		Level: config.GetString("log.level"),
		File:  config.GetString("log.file"),
	})

	var err error
	store, err = sqlite.New(rootCtx, dbPath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", dbPath, err)
	}

	fixtasks = fixtask.New(newTaskID)
	qcService = qc.New(store, fixtasks, newTaskID)

	if routingFile := config.GetString("routing.file"); routingFile != "" {
		pool, err = routing.Load(routingFile)
		if err != nil {
			return fmt.Errorf("loading routing file %s: %w", routingFile, err)
		}
		if config.GetBool("routing.watch") {
			_ = pool.Watch(rootCtx, func(err error) {
				logger.Warn("routing pool watch error", "error", err)
			})
		}
	}

	var routingArg interface {
		Member(ctx context.Context, tenantID, projectID, assigneeID string) (bool, error)
	}
	if pool != nil {
		routingArg = pool
	}
	exec = executor.New(store, fixtasks, routingArg, newTaskID)

	logger.Debug("bootstrapped", "db", dbPath)
	return nil
}

func outputJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "taskctl: encoding JSON output: %v\n", err)
	}
}

// Command opsgraph-cli manages incidents from the terminal, talking
// straight to the store with the same wiring as the server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opsgraph/opsgraph/internal/config"
	dbRedis "github.com/opsgraph/opsgraph/internal/db/redis"
	"github.com/opsgraph/opsgraph/internal/graph"
	"github.com/opsgraph/opsgraph/internal/incident"
	"github.com/opsgraph/opsgraph/internal/version"
)

var (
	cfg     config.Config
	store   *dbRedis.Store
	manager *incident.Manager
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "opsgraph-cli",
		Short:   "opsgraph CLI for incident tracking",
		Version: fmt.Sprintf("%s (commit: %s)", version.Version, version.Commit),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			connect()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if store != nil {
				store.Close()
			}
		},
		SilenceUsage: true,
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newSearchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func connect() {
	_ = godotenv.Load()

	var err error
	cfg, err = config.Load(config.GetEnv())
	if err != nil {
		fatal("load config", err)
	}

	store, err = dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		fatal("connect to store", err)
	}

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		fatal("store not ready", err)
	}

	g := graph.New(store, graph.Config{
		NodeIndex: cfg.Graph.NodeIndex,
		EdgeIndex: cfg.Graph.EdgeIndex,
		VectorDim: cfg.Graph.VectorDim,
	})
	if err := g.EnsureIndexes(ctx); err != nil {
		fatal("ensure indexes", err)
	}

	manager = incident.NewManager(g)
}

// cliLogger keeps library logging out of command output.
func cliLogger() *zap.Logger {
	return zap.NewNop()
}

// output pretty-prints any value as JSON.
func output(v any) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("encode output", err)
	}
	fmt.Println(string(raw))
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}

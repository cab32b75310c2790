// Package commands defines the Cobra CLI commands of the catalograg binary.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/config"
	logpkg "github.com/kailas-cloud/catalograg/internal/logger"
)

// app is the state shared by subcommands after PersistentPreRunE.
type app struct {
	configPath string
	env        string
	cfg        config.Config
	logger     *zap.Logger
}

// NewRootCmd constructs the root command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "catalograg",
		Short: "Catalog retrieval pipeline with cached embeddings and attribute rescoring",
		Long: `catalograg retrieves catalog items for a free-text shopping query.

It embeds the query, extracts structured attributes, runs a scoped vector
search, rescores candidates by attribute matches and engagement signals and
optionally reranks them with a cross-encoder.

Configuration is read from config/<ENV>.yaml unless --config is given.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to YAML config file (default: config/<ENV>.yaml)")

	root.AddCommand(
		newServeCmd(a),
		newQueryCmd(a),
		newVersionCmd(),
	)

	return root
}

func (a *app) load() error {
	a.env = config.GetEnv()

	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFile(a.configPath)
	} else {
		a.cfg, err = config.Load(a.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a.logger, err = logpkg.NewLogger(a.env, a.cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}

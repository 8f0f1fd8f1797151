package main

import (
	"fmt"
	"os"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ascend",
	Short: "Ascend goal coach",
	Long:  `Ascend is a chat-driven coach that plans goals into phases, milestones, tasks and calendar events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd)
		if err != nil {
			return err
		}

		logger.Setup(cfg.Server.LogLevel)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ascend/config.yaml)")
	rootCmd.PersistentFlags().String("server.log_level", config.DefaultServerLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("store.workspace_id", config.DefaultWorkspaceID, "workspace to open")
	rootCmd.PersistentFlags().String("store.seed_path", "", "YAML seed applied to an empty workspace")
}

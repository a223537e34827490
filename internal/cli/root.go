package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/apresai/duet/internal/config"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "duet",
	Short:         "Two AI co-hosts walk you through an article, out loud",
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "duet %s\n", Version)
	},
}

var (
	flagConfig string
	flagServer string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "Config file (default: ./duet.yaml, ./configs/duet.yaml, /etc/duet/duet.yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "http://localhost:8000", "Base URL of a running duet server (chat and sessions)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(voicesCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the configuration named by --config.
func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

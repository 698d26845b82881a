package commands

import (
	"fmt"
	"os"

	"github.com/battlesnakeio/chainsnake/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:     "chainsnake",
	Short:   "chainsnake plays the on-chain snake game and mints its rewards",
	Version: version.Version,
	PersistentPreRunE: func(c *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
}

var (
	apiAddr  = "http://localhost:3015"
	logLevel = "info"
	logFile  = ""
)

// Execute runs the root command
func Execute() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api-addr", apiAddr, "address of a running agent's status api")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "log level, as one of: [debug, info, warn, error]")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", logFile, "write logs to this file instead of stderr")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

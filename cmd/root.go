package cmd

import (
	"fmt"
	"os"

	"github.com/example/spoon-voicebot/internal/config"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var envFile string

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "voicebot",
		Short: "Outbound phone assistant that takes table bookings for The Golden Spoon",
	}

	root.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load instead of ./.env")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd())
	root.AddCommand(newDialCmd())
	root.AddCommand(newBookingsCmd())
	root.AddCommand(newAdminCmd())

	return root
}

// loadConfig reads --env-file when given, otherwise an optional ./.env.
func loadConfig() (config.Config, error) {
	if envFile != "" {
		return config.FromFile(envFile)
	}
	return config.FromEnv()
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is reported by the status endpoint and the banner.
const Version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "keygate",
	Short: "Keygate is a license validation service",
	Long: `A license/session validation service for client tools: it authenticates
shared credentials, issues time-bounded session tokens, and lets clients
periodically revalidate that their license is still active.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

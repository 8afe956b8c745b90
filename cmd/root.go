package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "studio",
	Short: "Multi-tenant studio management automation backend",
	Long:  `Backend for service businesses: availability checks, invoice reminders and the autopilot event pipeline.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Display current environment configuration",
	Long:  `Shows the current configuration loaded from environment variables, .env file and the project file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to show config: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), cfg.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}

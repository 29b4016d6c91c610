package cmd

import (
	"errors"
	"fmt"

	"github.com/ethpandaops/allure-runtime/internal/output"
	"github.com/ethpandaops/allure-runtime/internal/schema"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a results directory against the Allure JSON schemas",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		dir := cfg.ResultsDir
		if len(args) == 1 {
			dir = args[0]
		}

		colors := output.NewColorHelper()
		out := cmd.OutOrStdout()

		checked, err := schema.ValidateDir(dir)
		if err == nil {
			fmt.Fprintln(out, colors.Success(fmt.Sprintf("✓ %d files valid", checked)))
			return nil
		}

		var joined interface{ Unwrap() []error }
		if !errors.As(err, &joined) {
			return err
		}

		invalid := 0
		for _, e := range joined.Unwrap() {
			var fileErr *schema.FileError
			if !errors.As(e, &fileErr) {
				return e
			}
			invalid++
			fmt.Fprintf(out, "%s %s\n", colors.Failure("✗"), colors.Bold(fileErr.File))
			fmt.Fprintf(out, "  %s\n", colors.Muted(fileErr.Err.Error()))
		}

		return fmt.Errorf("%d of %d files invalid", invalid, checked) //nolint:err113 // Include counts for debugging
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

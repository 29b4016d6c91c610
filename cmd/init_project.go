package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethpandaops/allure-runtime/internal/config"
	"github.com/ethpandaops/allure-runtime/internal/output"
	"github.com/ethpandaops/allure-runtime/pkg/interactive"
	"github.com/ethpandaops/allure-runtime/pkg/labels"
	"github.com/ethpandaops/allure-runtime/pkg/model"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Interactively create the project file",
	Long: `Asks for the results directory, global labels, link templates and
environment entries and writes them to the project file (allure.yaml).`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runInit(cmd, cfg)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, cfg *config.Config) error {
	colors := output.NewColorHelper()
	path := cfg.ProjectFile

	if _, err := os.Stat(path); err == nil {
		overwrite, err := interactive.Confirm(fmt.Sprintf("%s exists, overwrite it?", path), false)
		if err != nil {
			return err
		}
		if !overwrite {
			fmt.Fprintln(cmd.OutOrStdout(), colors.Muted("Nothing written."))
			return nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	dir, err := interactive.Input("Results directory", cfg.ResultsDir, "")
	if err != nil {
		return err
	}
	project := &config.Project{ResultsDir: dir, Links: labels.LinkTemplates{}}

	globals, err := interactive.Input("Global labels", "", "Comma separated name=value pairs added to every test, e.g. owner=qa, layer=api")
	if err != nil {
		return err
	}
	for _, pair := range interactive.ParsePairs(globals) {
		project.Labels = append(project.Labels, model.Label{Name: pair[0], Value: pair[1]})
	}

	for _, linkType := range []string{model.LinkTypeIssue, model.LinkTypeTMS} {
		tmpl, err := interactive.Input(
			fmt.Sprintf("URL template for %s links", linkType),
			"",
			`"%s" is replaced by the link value, e.g. https://tracker.example.com/browse/%s`,
		)
		if err != nil {
			return err
		}
		if tmpl != "" {
			project.Links[linkType] = labels.LinkTemplate{URLTemplate: tmpl, NameTemplate: "%s"}
		}
	}

	env, err := interactive.Input("Environment", "", "Comma separated key=value pairs written to environment.properties")
	if err != nil {
		return err
	}
	if pairs := interactive.ParsePairs(env); len(pairs) > 0 {
		project.Environment = model.NewEnvironmentInfo()
		for _, pair := range pairs {
			project.Environment.Set(pair[0], pair[1])
		}
	}

	if err := config.SaveProject(path, project); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), colors.Success(fmt.Sprintf("✅ Wrote %s", path)))
	return nil
}

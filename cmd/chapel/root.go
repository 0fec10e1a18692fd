package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"chapel/internal/config"
	"chapel/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "chapel",
		Short:         "Chapel is a small blog store for a church ministry site",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), warning)
			}
			return selectOutputFormat(&jsonOutput, yamlOutput)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newCreateCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newSearchCmd(cfg, &jsonOutput),
		newRecentCmd(cfg, &jsonOutput),
		newInfoCmd(cfg, &jsonOutput),
		newMigrateCmd(cfg, &jsonOutput),
		newSeedCmd(cfg, &jsonOutput),
		newExportCmd(cfg, &jsonOutput),
		newImportCmd(cfg, &jsonOutput),
		newConfigCmd(cfg),
	)

	return cmd
}

// selectOutputFormat picks the structured formatter. --yaml implies
// structured output, so commands only ever check the json flag.
func selectOutputFormat(jsonOutput *bool, yamlOutput bool) error {
	if *jsonOutput && yamlOutput {
		return errors.New("--json and --yaml are mutually exclusive")
	}
	name := "json"
	if yamlOutput {
		name = "yaml"
		*jsonOutput = true
	}
	formatter, err := format.ByName(name)
	if err != nil {
		return err
	}
	outputFormatter = formatter
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mark3labs/endpointgen/internal/logger"
)

// Execute runs the endpointgen CLI.
func Execute() error {
	defer logger.Sync()
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "endpointgen",
		Short:         "Generate controller and data class models from OpenAPI/Swagger specs",
		Long:          "endpointgen resolves an API description into resource identifiers, type descriptors and a code model of controller interfaces and data classes.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			jsonLogs, err := cmd.Flags().GetBool("json-logs")
			if err != nil {
				return err
			}
			if !verbose && !jsonLogs {
				return nil
			}
			return logger.Initialize(verbose, jsonLogs)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML, JSON or TOML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")
	cmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	g := newGenerateCmd()
	g.SetFlagErrorFunc(flagErr)
	cmd.AddCommand(g)

	i := newInitCmd()
	i.SetFlagErrorFunc(flagErr)
	cmd.AddCommand(i)

	return cmd
}

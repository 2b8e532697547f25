package cli

import (
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
)

// Execute runs the contractc CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "contractc",
		Short:         "Verify API contracts and generate documents from them",
		Long:          "contractc reads API contract descriptions, reports authoring mistakes with source positions, and generates OpenAPI 3 documents or IR dumps from contracts that verify cleanly.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(flagError)

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{newCheckCmd(), newGenerateCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(flagError)
		cmd.AddCommand(sub)
	}
	return cmd
}

func flagError(c *cobra.Command, err error) error {
	return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
}

// newLogger returns a logger writing to w when verbose is set and
// discarding otherwise.
func newLogger(w io.Writer, verbose bool) *log.Logger {
	if !verbose || w == nil {
		return log.New(io.Discard, "", 0)
	}
	return log.New(w, "contractc: ", 0)
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/contractc/internal/emitter"
	"github.com/mark3labs/contractc/internal/verify"
)

// CheckConfig captures all inputs that influence the check command after
// merging config file values and CLI overrides.
type CheckConfig struct {
	Inputs     []string
	Format     string // text, json or yaml
	ConfigPath string
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
}

var checkRunner = runCheck

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [contract...]",
		Short: "Verify contracts and report problems",
		Long: "Verify one or more contracts and print every problem found with its source position. " +
			"Exits with an error when any contract has problems.",
		Example: strings.TrimSpace(`  contractc check api.yaml
  contractc check --format json api.yaml admin.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveCheckConfig(cmd, args)
			if err != nil {
				return err
			}
			return checkRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringSlice("input", nil, "Paths or URLs of contracts to check")
	flags.String("format", "", "Diagnostics format (text|json|yaml); defaults to text")
	return cmd
}

func resolveCheckConfig(cmd *cobra.Command, args []string) (*CheckConfig, error) {
	file, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	cfg := &CheckConfig{
		Inputs:     file.Inputs,
		Format:     file.Diagnostics,
		ConfigPath: path,
		Verbose:    file.Verbose,
		Stdout:     cmd.OutOrStdout(),
		Stderr:     cmd.ErrOrStderr(),
	}
	if err := applyCheckFlagOverrides(cmd.Flags(), cfg); err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Inputs = append(cfg.Inputs, args...)
	}

	cfg.Inputs = dedupe(cfg.Inputs)
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if len(cfg.Inputs) == 0 {
		return nil, newUsageError("check: at least one contract is required (as argument, --input or config file)")
	}
	switch cfg.Format {
	case "":
		cfg.Format = "text"
	case "text", "json", "yaml":
	default:
		return nil, newUsageError(fmt.Sprintf("check: unsupported --format %q (allowed: text, json, yaml)", cfg.Format))
	}
	return cfg, nil
}

func applyCheckFlagOverrides(flags *pflag.FlagSet, cfg *CheckConfig) error {
	if flags.Changed("input") {
		value, err := flags.GetStringSlice("input")
		if err != nil {
			return err
		}
		cfg.Inputs = value
	}
	if flags.Changed("format") {
		value, err := flags.GetString("format")
		if err != nil {
			return err
		}
		cfg.Format = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}
	return nil
}

// checkReport is the structured output for one contract.
type checkReport struct {
	Input       string              `json:"input" yaml:"input"`
	Diagnostics []verify.Diagnostic `json:"diagnostics" yaml:"diagnostics"`
}

func runCheck(ctx context.Context, cfg *CheckConfig) error {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger := newLogger(cfg.Stderr, cfg.Verbose)

	reports := make([]checkReport, 0, len(cfg.Inputs))
	total := 0
	for _, input := range cfg.Inputs {
		res, err := compileInput(ctx, input, logger)
		if err != nil {
			return err
		}
		reports = append(reports, checkReport{Input: input, Diagnostics: res.Diagnostics})
		total += len(res.Diagnostics)
	}

	switch cfg.Format {
	case "json", "yaml":
		f, err := emitter.ParseFormat(cfg.Format)
		if err != nil {
			return err
		}
		raw, err := emitter.Marshal(reports, f)
		if err != nil {
			return err
		}
		if _, err := stdout.Write(raw); err != nil {
			return err
		}
	default:
		for _, r := range reports {
			writeDiagnosticsText(stdout, r.Diagnostics)
			if len(r.Diagnostics) == 0 {
				fmt.Fprintf(stdout, "%s: ok\n", r.Input)
			}
		}
	}

	if total > 0 {
		return invalidContract(total, len(reports))
	}
	return nil
}

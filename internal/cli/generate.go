package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/contractc/internal/emitter"
	"github.com/mark3labs/contractc/internal/emitter/iremitter"
	"github.com/mark3labs/contractc/internal/emitter/openapi3emitter"
)

const (
	targetOpenAPI3 = "openapi3"
	targetIR       = "ir"
)

// GenerateConfig captures all inputs that influence the generate command after
// merging defaults, config file values, and CLI overrides.
type GenerateConfig struct {
	Input      string
	Target     string
	Format     string
	Out        string
	FileName   string
	APIVersion string
	Hoist      bool
	ConfigPath string
	DryRun     bool
	Force      bool
	Verbose    bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Target: targetOpenAPI3, Out: "."}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an OpenAPI document or IR dump from a contract",
		Long: "Generate an OpenAPI 3 document or an IR dump from a contract that verifies cleanly. " +
			"Options can be provided via flags, config files, or defaults.",
		Example: strings.TrimSpace(`  contractc generate --input api.yaml --out ./out
  contractc generate --input api.yaml --target ir --format json
  contractc --config contractc.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "Path or URL to the contract")
	flags.String("target", "", "What to generate (openapi3|ir); defaults to openapi3")
	flags.String("format", "", "Output encoding (yaml|json); defaults to yaml for openapi3 and json for ir")
	flags.String("out", "", "Output directory; defaults to the current directory")
	flags.String("file-name", "", "Output file name without extension")
	flags.String("api-version", "", "Version recorded in the generated OpenAPI info")
	flags.Bool("hoist", false, "Move nested objects and unions into their own OpenAPI components")
	flags.Bool("dry-run", false, "Preview planned outputs without writing files")
	flags.Bool("force", false, "Overwrite existing output when set")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	cfg := defaultGenerateConfig()

	file, path, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if path != "" {
		cfg.ConfigPath = path
		cfg.applyFile(file)
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}
	cfg.Stdout = cmd.OutOrStdout()
	cfg.Stderr = cmd.ErrOrStderr()

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *GenerateConfig) applyFile(file fileConfig) {
	if len(file.Inputs) > 0 {
		c.Input = file.Inputs[0]
	}
	if file.Target != "" {
		c.Target = file.Target
	}
	if file.Format != "" {
		c.Format = file.Format
	}
	if file.Out != "" {
		c.Out = file.Out
	}
	c.FileName = file.FileName
	c.APIVersion = file.APIVersion
	c.Hoist = file.Hoist
	c.DryRun = file.DryRun
	c.Force = file.Force
	c.Verbose = file.Verbose
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strs := map[string]*string{
		"input":       &cfg.Input,
		"target":      &cfg.Target,
		"format":      &cfg.Format,
		"out":         &cfg.Out,
		"file-name":   &cfg.FileName,
		"api-version": &cfg.APIVersion,
	}
	for name, dst := range strs {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}
	bools := map[string]*bool{
		"hoist":   &cfg.Hoist,
		"dry-run": &cfg.DryRun,
		"force":   &cfg.Force,
		"verbose": &cfg.Verbose,
	}
	for name, dst := range bools {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}
	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	c.Out = strings.TrimSpace(c.Out)
	c.FileName = strings.TrimSpace(c.FileName)
	c.APIVersion = strings.TrimSpace(c.APIVersion)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	switch c.Target {
	case "", targetOpenAPI3:
		c.Target = targetOpenAPI3
	case targetIR:
		if c.Hoist {
			return newUsageError("generate: --hoist only applies to the openapi3 target")
		}
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --target %q (allowed: openapi3, ir)", c.Target))
	}

	if c.Format != "" {
		if _, err := emitter.ParseFormat(c.Format); err != nil {
			return newUsageError(fmt.Sprintf("generate: %v", err))
		}
	}
	if c.Out == "" {
		c.Out = "."
	}
	if strings.ContainsAny(c.FileName, `/\`) {
		return newUsageError(fmt.Sprintf("generate: --file-name %q must not contain path separators", c.FileName))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := newLogger(stderr, cfg.Verbose)

	// 1) Read and verify; generators only ever see clean contracts
	res, err := compileInput(ctx, cfg.Input, logger)
	if err != nil {
		return err
	}
	if !res.OK() {
		writeDiagnosticsText(stderr, res.Diagnostics)
		return invalidContract(len(res.Diagnostics), 1)
	}

	var format emitter.Format
	if cfg.Format != "" {
		format, _ = emitter.ParseFormat(cfg.Format)
	}
	write := emitter.WriteOptions{OutDir: cfg.Out, Force: cfg.Force, DryRun: cfg.DryRun}

	// Ensure outDir is absolute only for display; emitters handle actual creation/writes
	absOut := cfg.Out
	if ap, err := filepath.Abs(cfg.Out); err == nil {
		absOut = ap
	}

	// 2) Emit for the chosen target
	var planned []emitter.PlannedFile
	switch cfg.Target {
	case targetOpenAPI3:
		out, err := openapi3emitter.Emit(ctx, res, openapi3emitter.Options{
			WriteOptions: write,
			Format:       format,
			FileName:     cfg.FileName,
			APIVersion:   cfg.APIVersion,
			Hoist:        cfg.Hoist,
		})
		if err != nil {
			return wrapOutputError(err, absOut)
		}
		planned = out.Planned
	case targetIR:
		out, err := iremitter.Emit(ctx, res, iremitter.Options{
			WriteOptions: write,
			Format:       format,
			FileName:     cfg.FileName,
		})
		if err != nil {
			return wrapOutputError(err, absOut)
		}
		planned = out.Planned
	default:
		return newUsageError(fmt.Sprintf("generate: unsupported --target %q (allowed: openapi3, ir)", cfg.Target))
	}

	if cfg.DryRun {
		printPlan(stdout, absOut, planned)
		return nil
	}
	for _, p := range planned {
		logger.Printf("wrote %s", filepath.Join(absOut, filepath.FromSlash(p.RelPath)))
	}
	return nil
}

func printPlan(w io.Writer, outDir string, planned []emitter.PlannedFile) {
	fmt.Fprintf(w, "Planned writes to %s (%d files):\n", outDir, len(planned))
	for _, p := range planned {
		fmt.Fprintf(w, "- %s (%d bytes)\n", p.RelPath, p.Size)
	}
}

func wrapOutputError(err error, outDir string) error {
	// Provide clearer guidance for common FS failures.
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") || strings.Contains(lower, "rename") || strings.Contains(lower, "exists") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", outDir, msg))
	}
	return err
}

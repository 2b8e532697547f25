package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/contractc/internal/emitter"
)

const (
	sampleContractFile = "contract.yaml"
	sampleConfigFile   = "contractc.yaml"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	Dir     string
	Force   bool
	Verbose bool
	Stdout  io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample contract and contractc configuration file",
		Long:  "Scaffold a sample contract that verifies cleanly and a commented contractc configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cmd.Flags().GetString("dir")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				Dir:     dir,
				Force:   force,
				Verbose: verbose,
				Stdout:  cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("dir", ".", "Directory to write the sample files into")
	cmd.Flags().Bool("force", false, "Overwrite the target files if they already exist")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	files := map[string][]byte{
		sampleContractFile: []byte(strings.TrimSpace(sampleContractYAML) + "\n"),
		sampleConfigFile:   []byte(strings.TrimSpace(sampleConfigYAML) + "\n"),
	}
	planned, err := emitter.Write(emitter.WriteOptions{OutDir: absDir, Force: cfg.Force}, files)
	if err != nil {
		return newUsageError(fmt.Sprintf("init: %v\nHint: choose a different --dir or use --force to overwrite.", err))
	}
	for _, p := range planned {
		fmt.Fprintf(stdout, "Wrote %s\n", filepath.Join(absDir, filepath.FromSlash(p.RelPath)))
	}
	return nil
}

// sampleContractYAML is a small contract exercising every section.
const sampleContractYAML = `# Sample contract. Check it with: contractc check contract.yaml
api:
  name: todo
  description: A minimal todo list service
  securityHeader:
    name: x-auth-token
    type: string

types:
  Todo:
    description: A single todo item
    type:
      object:
        id: TodoId
        title: string
        done: boolean
        due:
          type: date
          optional: true
        priority:
          union:
            - literal: low
            - literal: high
            - undefined
  TodoId: int64
  Problem:
    object:
      message: string

endpoints:
  listTodos:
    description: List todo items
    tags: [todos]
    method: GET
    path: /todos
    request:
      queryParams:
        limit:
          type: int32
          optional: true
    responses:
      200:
        body:
          array: Todo
  getTodo:
    tags: [todos]
    method: GET
    path: /todos/:id
    request:
      pathParams:
        id: TodoId
    responses:
      200:
        body: Todo
      404:
        description: No todo with this id
        body: Problem
  createTodo:
    tags: [todos]
    method: POST
    path: /todos
    request:
      headers:
        x-request-id:
          type: string
          optional: true
      body:
        type: Todo
        description: The todo to create
    responses:
      201:
        body: Todo
    defaultResponse:
      body: Problem
`

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# contractc configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL of the contract (http/https or local file). check accepts a list.
# input: ./contract.yaml

# What generate produces (openapi3|ir). Defaults to openapi3.
# target: openapi3

# Output encoding for generate (yaml|json).
# format: yaml

# Output directory for generate. Defaults to the current directory.
# out: ./out

# Output file name without extension.
# fileName: openapi

# Version recorded in the generated OpenAPI info.
# apiVersion: 1.0.0

# Move nested objects and unions into their own OpenAPI components.
# hoist: false

# Diagnostics format for check (text|json|yaml).
# diagnostics: text

# Preview planned outputs without writing files.
# dryRun: false

# Overwrite existing output files.
# force: false

# Enable verbose logging.
# verbose: false
`

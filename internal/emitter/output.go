// Package emitter holds what the generators share: output encoding and
// the planned, atomic writing of generated files.
package emitter

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported format %q (want yaml or json)", s)
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".yaml"
}

// Marshal encodes v. YAML output is derived from the JSON encoding so that
// types with custom JSON marshalers keep their shape and key order.
func Marshal(v any, f Format) ([]byte, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json: %w", err)
	}
	if f == FormatJSON {
		return append(raw, '\n'), nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("convert to yaml: %w", err)
	}
	blockStyle(&doc)
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshal yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// blockStyle drops the flow and quoting styles JSON input carries.
func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// PlannedFile describes a file a generator intends to write.
type PlannedFile struct {
	RelPath string      `json:"path" yaml:"path"`
	Size    int         `json:"size" yaml:"size"`
	Mode    os.FileMode `json:"mode" yaml:"mode"`
}

// WriteOptions controls where and whether generated files are written.
type WriteOptions struct {
	OutDir string // required; target directory
	Force  bool   // overwrite existing files
	DryRun bool   // don't write, only plan
}

// Plan lists files in deterministic order.
func Plan(files map[string][]byte) []PlannedFile {
	rels := make([]string, 0, len(files))
	for p := range files {
		rels = append(rels, p)
	}
	sort.Strings(rels)
	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: filepath.ToSlash(rel), Size: len(files[rel]), Mode: 0o644})
	}
	return planned
}

// Write plans files and, unless opts.DryRun is set, writes them below
// opts.OutDir. Existing files are only replaced with opts.Force.
func Write(opts WriteOptions, files map[string][]byte) ([]PlannedFile, error) {
	if strings.TrimSpace(opts.OutDir) == "" {
		return nil, fmt.Errorf("emitter: OutDir is required")
	}
	planned := Plan(files)
	if opts.DryRun {
		return planned, nil
	}
	abs, err := filepath.Abs(opts.OutDir)
	if err != nil {
		return nil, fmt.Errorf("resolve out dir: %w", err)
	}
	// Pre-flight so nothing is written when one file would be refused.
	if !opts.Force {
		for _, pf := range planned {
			p := filepath.Join(abs, filepath.FromSlash(pf.RelPath))
			if _, err := os.Stat(p); err == nil {
				return nil, fmt.Errorf("emitter: output file %q exists (use --force to overwrite)", p)
			}
		}
	}
	for _, pf := range planned {
		p := filepath.Join(abs, filepath.FromSlash(pf.RelPath))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
		// atomic write via temp file + rename
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, files[pf.RelPath], pf.Mode); err != nil {
			return nil, fmt.Errorf("write temp %s: %w", pf.RelPath, err)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return nil, fmt.Errorf("rename %s: %w", pf.RelPath, err)
		}
	}
	return planned, nil
}

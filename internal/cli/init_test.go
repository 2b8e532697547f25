package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInit_WritesSampleFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--dir", dir})

	if err := root.Execute(); err != nil {
		t.Fatalf("init execute: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, sampleConfigFile))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "contractc configuration") {
		t.Fatalf("unexpected config contents: %s", data)
	}
	if !strings.Contains(out.String(), sampleContractFile) {
		t.Fatalf("expected written files to be reported, got: %s", out.String())
	}
}

func TestInit_SampleContractIsClean(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := runInit(context.Background(), &InitConfig{Dir: dir, Stdout: io.Discard}); err != nil {
		t.Fatalf("init: %v", err)
	}
	res, err := compileInput(context.Background(), filepath.Join(dir, sampleContractFile), newLogger(nil, false))
	if err != nil {
		t.Fatalf("compile sample: %v", err)
	}
	if !res.OK() {
		t.Fatalf("sample contract has problems: %+v", res.Diagnostics)
	}
}

func TestInit_SampleConfigIsAccepted(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := runInit(context.Background(), &InitConfig{Dir: dir, Stdout: io.Discard}); err != nil {
		t.Fatalf("init: %v", err)
	}
	var cfg fileConfig
	if err := applyConfigFromFile(&cfg, filepath.Join(dir, sampleConfigFile)); err != nil {
		t.Fatalf("sample config rejected: %v", err)
	}
}

func TestInit_ExistingWithoutForce(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, sampleConfigFile)
	if err := os.WriteFile(path, []byte("x"), 0o600); err != nil {
		t.Fatalf("prewrite: %v", err)
	}

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--dir", dir})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error for existing file without --force")
	}
	if _, ok := err.(usageError); !ok {
		t.Fatalf("expected usage error, got %T: %v", err, err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"init", "--dir", dir, "--force"})
	if err := root.Execute(); err != nil {
		t.Fatalf("init with force: %v", err)
	}
}

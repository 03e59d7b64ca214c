package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/daemon"
	"bindery/internal/logging"
	"bindery/internal/testsupport"
	"bindery/internal/workflow"
)

type cliTestEnv struct {
	cfg     *config.Config
	store   *book.Store
	daemon  *daemon.Daemon
	address string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	store := testsupport.MustOpenStore(t, cfg)
	blobs := testsupport.MustOpenBlobs(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, blobs, testsupport.NewFakeGateway(), testsupport.NewFakeRemote(), logger)

	d, err := daemon.New(cfg, store, blobs, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		cancel()
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		d.Stop()
		cancel()
	})

	return &cliTestEnv{cfg: cfg, store: store, daemon: d, address: d.APIAddress()}
}

func runCLIStandalone(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, error) {
	t.Helper()

	full := append([]string{"--address", env.address}, args...)
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(full)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, output)
	}
}

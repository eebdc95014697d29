package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/rolodex/internal/core/services"
)

// testEnv wires the commands to in-memory adapters. Every run builds a
// fresh session, so data only survives through the stores, as between
// separate invocations of the binary.
type testEnv struct {
	store  *memory.ObjectStore
	snaps  *memory.SnapshotStore
	config *memory.ConfigStore

	watch FolderWatcher
	auth  *AuthSession
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:  memory.NewObjectStore(),
		snaps:  memory.NewSnapshotStore(),
		config: memory.NewConfigStore(),
	}

	prevBootstrap, prevInteractive := bootstrap, isInteractive
	bootstrap = env.bootstrap
	isInteractive = func() bool { return false }
	t.Cleanup(func() {
		closeSession()
		bootstrap = prevBootstrap
		isInteractive = prevInteractive
		resetFlags(rootCmd)
	})
	return env
}

func (e *testEnv) bootstrap(_ context.Context, opts Options) (*Session, error) {
	cfg := services.NewSettingsService(e.config)
	settings, err := cfg.Get()
	if err != nil {
		return nil, err
	}
	storage := services.NewStorageService(e.store, settings.Load)
	return &Session{
		Settings:  settings,
		Config:    cfg,
		Workspace: services.NewWorkspace(storage, e.snaps, settings.Storage.RootFolder, opts.Offline),
		Watch:     e.watch,
		Auth:      e.auth,
	}, nil
}

// run executes the command line and returns everything it printed.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return e.runWithInput(t, "", args...)
}

func (e *testEnv) runWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	closeSession()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		closeSession()
	}()

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// mustRun is run for steps that set up a test.
func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("rolodex %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// resetFlags restores every flag to its default. Cobra keeps parsed values
// between executions of the same command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/rolodex/internal/adapters/driving/cli"
	"github.com/custodia-labs/rolodex/internal/core/domain"
)

func TestResolvePaths(t *testing.T) {
	tests := []struct {
		name  string
		input domain.AppSettings
		want  func(dir string) (token, local, cache string)
	}{
		{
			name: "defaults",
			want: func(dir string) (string, string, string) {
				return filepath.Join(dir, "token.json"), filepath.Join(dir, "store"), filepath.Join(dir, "cache")
			},
		},
		{
			name: "relative paths anchored at config dir",
			input: domain.AppSettings{
				Auth:    domain.AuthSettings{TokenFile: "creds/tok.json"},
				Storage: domain.StorageSettings{LocalDir: "data"},
				Cache:   domain.CacheSettings{Dir: "snap"},
			},
			want: func(dir string) (string, string, string) {
				return filepath.Join(dir, "creds", "tok.json"), filepath.Join(dir, "data"), filepath.Join(dir, "snap")
			},
		},
		{
			name: "absolute paths kept",
			input: domain.AppSettings{
				Auth:    domain.AuthSettings{TokenFile: "/etc/rolodex/token.json"},
				Storage: domain.StorageSettings{LocalDir: "/srv/rolodex"},
				Cache:   domain.CacheSettings{Dir: "/var/cache/rolodex"},
			},
			want: func(string) (string, string, string) {
				return "/etc/rolodex/token.json", "/srv/rolodex", "/var/cache/rolodex"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			s := tt.input
			resolvePaths(&s, dir)

			token, local, cache := tt.want(dir)
			assert.Equal(t, token, s.Auth.TokenFile)
			assert.Equal(t, local, s.Storage.LocalDir)
			assert.Equal(t, cache, s.Cache.Dir)
		})
	}
}

func TestBootstrap_LocalBackend(t *testing.T) {
	dir := t.TempDir()
	config := "[storage]\nbackend = \"local\"\nroot_folder = \"crm\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0o600))

	s, err := bootstrap(context.Background(), cli.Options{ConfigDir: dir})
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.Close != nil {
			assert.NoError(t, s.Close())
		}
	})

	assert.Equal(t, domain.BackendLocal, s.Settings.Storage.Backend)
	assert.Nil(t, s.Auth)
	assert.NotNil(t, s.Watch)
	require.NotNil(t, s.Workspace)

	structure, err := s.Workspace.Init(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, structure.Contacts)

	_, err = os.Stat(filepath.Join(dir, "store", "crm"))
	assert.NoError(t, err)
}

func TestBootstrap_DriveBackend(t *testing.T) {
	dir := t.TempDir()
	config := "[auth]\nclient_id = \"id\"\nclient_secret = \"secret\"\n\n[cache]\nenabled = false\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0o600))

	s, err := bootstrap(context.Background(), cli.Options{ConfigDir: dir})
	require.NoError(t, err)

	assert.NotNil(t, s.Watch, "drive changes are polled")
	assert.Nil(t, s.Close)
	require.NotNil(t, s.Auth)
	require.NotNil(t, s.ResolveURL)

	cfg, err := s.Auth.Config("http://127.0.0.1:8765/callback")
	require.NoError(t, err)
	assert.Equal(t, "id", cfg.ClientID)
	assert.Equal(t, "http://127.0.0.1:8765/callback", cfg.RedirectURL)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/adapters/driven/auth"
	"github.com/custodia-labs/rolodex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/localfs"
	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/resilient"
	"github.com/custodia-labs/rolodex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/rolodex/internal/adapters/driving/cli"
	"github.com/custodia-labs/rolodex/internal/connectors/google"
	"github.com/custodia-labs/rolodex/internal/connectors/google/drive"
	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/core/services"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Default file names inside the config directory.
const (
	tokenFileName = "token.json"
	localDirName  = "store"
	cacheDirName  = "cache"
)

// bootstrap wires the adapters selected by config.toml into a session.
func bootstrap(ctx context.Context, opts cli.Options) (*cli.Session, error) {
	dir := opts.ConfigDir
	if dir == "" {
		d, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	config := services.NewSettingsService(configStore)
	settings, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	resolvePaths(settings, dir)
	logger.Debugw("settings loaded", "dir", dir, "backend", settings.Storage.Backend)

	s := &cli.Session{Settings: settings, Config: config}

	var store driven.ObjectStore
	switch settings.Storage.Backend {
	case domain.BackendDrive:
		store, err = driveBackend(ctx, settings, s)
	case domain.BackendLocal:
		store, err = localBackend(settings, s)
	default:
		err = fmt.Errorf("%w: invalid storage backend %q", domain.ErrInvalidInput, settings.Storage.Backend)
	}
	if err != nil {
		return nil, err
	}
	store = resilient.FromSettings(store, settings.Retry, string(settings.Storage.Backend))
	if s.Watch == nil {
		s.Watch = services.NewPoller(store, services.DefaultPollInterval).Run
	}

	var snapshots driven.SnapshotStore
	if settings.Cache.Enabled {
		cache, err := sqlite.NewStore(settings.Cache.Dir)
		if err != nil {
			logger.Warn("snapshot cache unavailable: %v", err)
		} else {
			snapshots = cache
			s.Close = cache.Close
		}
	}

	storage := services.NewStorageService(store, settings.Load)
	s.Workspace = services.NewWorkspace(storage, snapshots, settings.Storage.RootFolder, opts.Offline)
	return s, nil
}

// resolvePaths fills empty paths with defaults and anchors relative ones at dir.
func resolvePaths(settings *domain.AppSettings, dir string) {
	resolve := func(p *string, def string) {
		switch {
		case *p == "":
			*p = filepath.Join(dir, def)
		case !filepath.IsAbs(*p):
			*p = filepath.Join(dir, *p)
		}
	}
	resolve(&settings.Auth.TokenFile, tokenFileName)
	resolve(&settings.Storage.LocalDir, localDirName)
	resolve(&settings.Cache.Dir, cacheDirName)
}

func driveBackend(ctx context.Context, settings *domain.AppSettings, s *cli.Session) (driven.ObjectStore, error) {
	creds := settings.Auth
	oauthConfig := func(redirectURL string) (*oauth2.Config, error) {
		if !creds.HasOAuthClient() {
			return nil, fmt.Errorf("%w: set auth.client_id and auth.client_secret in config.toml",
				domain.ErrAuthRequired)
		}
		return google.OAuthConfig(creds.ClientID, creds.ClientSecret, redirectURL), nil
	}

	// A nil config leaves the token file without refresh.
	refresh, _ := oauthConfig("")
	provider := auth.NewTokenProvider(creds, refresh, os.Getenv)
	ts := google.NewTokenSource(ctx, provider)

	svc, err := google.NewDriveService(ctx, ts)
	if err != nil {
		return nil, err
	}

	s.ResolveURL = drive.ResolveWebURL
	s.Auth = &cli.AuthSession{
		Config: oauthConfig,
		SaveToken: func(tok *oauth2.Token) error {
			return auth.SaveToken(creds.TokenFile, tok)
		},
		TokenSource: ts,
		WhoAmI: func(ctx context.Context) (*cli.Account, error) {
			info, err := google.GetUserInfo(ctx, oauth2.NewClient(ctx, ts), google.UserInfoURL)
			if err != nil {
				return nil, err
			}
			return &cli.Account{Email: info.Email, Name: info.Name, Verified: info.VerifiedEmail}, nil
		},
	}

	limiter := google.NewRateLimiter(google.DriveRateLimit)
	return drive.NewStore(svc, limiter, drive.NewConfig(settings.Storage.PageSize)), nil
}

func localBackend(settings *domain.AppSettings, s *cli.Session) (driven.ObjectStore, error) {
	store, err := localfs.New(settings.Storage.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", settings.Storage.LocalDir, err)
	}

	s.Watch = func(ctx context.Context, folderIDs []string, onChange func(context.Context, []string) error) (err error) {
		w, err := store.Watch(localfs.DefaultDebounce, folderIDs...)
		if err != nil {
			return err
		}
		defer func() {
			err = errors.Join(err, w.Close())
		}()
		return w.Run(ctx, func(ctx context.Context, changes []localfs.Change) error {
			ids := make([]string, 0, len(changes))
			for _, c := range changes {
				logger.Debug("%s %s", c.Kind, c.ID)
				ids = append(ids, c.ID)
			}
			return onChange(ctx, ids)
		})
	}
	return store, nil
}

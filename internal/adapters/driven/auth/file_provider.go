package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
	"github.com/custodia-labs/rolodex/internal/logger"
)

// Ensure FileTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*FileTokenProvider)(nil)

// defaultRefreshBuffer refreshes tokens this long before they expire.
const defaultRefreshBuffer = 5 * time.Minute

// FileTokenProvider serves an OAuth token stored as JSON at path.
// With an oauth2.Config it refreshes the token shortly before expiry and
// writes the new token back; without one an expired token is an error.
type FileTokenProvider struct {
	path   string
	config *oauth2.Config

	mu            sync.Mutex
	cached        *oauth2.Token
	refreshBuffer time.Duration
	now           func() time.Time
}

// NewFileTokenProvider creates a provider for the token file at path.
// config may be nil.
func NewFileTokenProvider(path string, config *oauth2.Config) *FileTokenProvider {
	return &FileTokenProvider{
		path:          path,
		config:        config,
		refreshBuffer: defaultRefreshBuffer,
		now:           time.Now,
	}
}

// Path returns the token file path.
func (p *FileTokenProvider) Path() string {
	return p.path
}

// GetToken returns a valid access token, refreshing if necessary.
func (p *FileTokenProvider) GetToken(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.fresh(p.cached) {
		return p.cached.AccessToken, nil
	}

	tok := p.cached
	if tok == nil {
		loaded, err := LoadToken(p.path)
		if err != nil {
			return "", err
		}
		tok = loaded
	}

	if p.fresh(tok) {
		p.cached = tok
		return tok.AccessToken, nil
	}

	if p.config == nil || tok.RefreshToken == "" {
		return "", fmt.Errorf("token in %s expired at %s: %w",
			p.path, tok.Expiry.Format(time.RFC3339), domain.ErrAuthExpired)
	}

	// Mark expired; the library only refreshes inside its own small margin.
	stale := *tok
	stale.Expiry = p.now().Add(-time.Second)
	refreshed, err := p.config.TokenSource(ctx, &stale).Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrTokenRefreshFailed, err)
	}
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = tok.RefreshToken
	}

	if err := SaveToken(p.path, refreshed); err != nil {
		logger.Warn("could not persist refreshed token: %v", err)
	}
	logger.Debug("auth: refreshed access token, expires %s", refreshed.Expiry.Format(time.RFC3339))

	p.cached = refreshed
	return refreshed.AccessToken, nil
}

// IsAuthenticated returns true if a usable or refreshable token exists.
func (p *FileTokenProvider) IsAuthenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	tok := p.cached
	if tok == nil {
		loaded, err := LoadToken(p.path)
		if err != nil {
			return false
		}
		tok = loaded
	}
	return p.fresh(tok) || (p.config != nil && tok.RefreshToken != "")
}

// InvalidateCache forgets the cached token so the next call rereads the file.
func (p *FileTokenProvider) InvalidateCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cached = nil
}

func (p *FileTokenProvider) fresh(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	if tok.Expiry.IsZero() {
		return true
	}
	return p.now().Add(p.refreshBuffer).Before(tok.Expiry)
}

// LoadToken reads a token file written by SaveToken.
// A missing file yields domain.ErrAuthRequired.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no token at %s (run `rolodex auth login`): %w", path, domain.ErrAuthRequired)
	}
	if err != nil {
		return nil, fmt.Errorf("reading token: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decoding token %s: %w", path, err)
	}
	return &tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("writing token: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing token: %w", err)
	}
	return nil
}

package auth

import (
	"context"
	"fmt"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// Ensure StaticTokenProvider implements the TokenProvider interface.
var _ driven.TokenProvider = (*StaticTokenProvider)(nil)

// StaticTokenProvider returns a fixed access token. Static tokens can't be
// refreshed; when one expires the store reports domain.ErrAuthExpired.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for a fixed token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// GetToken returns the token, or domain.ErrAuthRequired when it is empty.
func (p *StaticTokenProvider) GetToken(_ context.Context) (string, error) {
	if p.token == "" {
		return "", fmt.Errorf("no access token configured (run `rolodex auth login`): %w", domain.ErrAuthRequired)
	}
	return p.token, nil
}

// IsAuthenticated returns true if a token is set.
func (p *StaticTokenProvider) IsAuthenticated() bool {
	return p.token != ""
}

package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// providerSource serves the current token of a driven.TokenProvider to
// Google API clients. Refresh and caching stay with the provider.
type providerSource struct {
	ctx      context.Context
	provider driven.TokenProvider
}

// NewTokenSource returns an oauth2.TokenSource backed by provider. ctx is
// passed to every GetToken call.
func NewTokenSource(ctx context.Context, provider driven.TokenProvider) oauth2.TokenSource {
	return &providerSource{ctx: ctx, provider: provider}
}

func (p *providerSource) Token() (*oauth2.Token, error) {
	if p.provider == nil {
		return nil, domain.ErrAuthRequired
	}
	tok, err := p.provider.GetToken(p.ctx)
	switch {
	case err != nil:
		return nil, err
	case tok == "":
		return nil, fmt.Errorf("empty access token: %w", domain.ErrAuthRequired)
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}

package auth

import (
	"golang.org/x/oauth2"

	"github.com/custodia-labs/rolodex/internal/core/domain"
	"github.com/custodia-labs/rolodex/internal/core/ports/driven"
)

// EnvAccessToken overrides every other credential source.
const EnvAccessToken = "ROLODEX_ACCESS_TOKEN"

// NewTokenProvider picks the credential source for the Drive backend, in
// order: the EnvAccessToken variable, auth.access_token, then the token file.
// config enables refresh of the token file and may be nil.
func NewTokenProvider(
	settings domain.AuthSettings,
	config *oauth2.Config,
	getenv func(string) string,
) driven.TokenProvider {
	if getenv != nil {
		if token := getenv(EnvAccessToken); token != "" {
			return NewStaticTokenProvider(token)
		}
	}
	if settings.AccessToken != "" {
		return NewStaticTokenProvider(settings.AccessToken)
	}
	if settings.TokenFile != "" {
		return NewFileTokenProvider(settings.TokenFile, config)
	}
	return NewStaticTokenProvider("")
}

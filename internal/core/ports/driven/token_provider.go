package driven

import "context"

// TokenProvider provides access tokens for authenticated store calls.
// The storage layer treats the token as opaque; refresh is the provider's job.
type TokenProvider interface {
	// GetToken returns a valid access token.
	// Implementations refresh expired tokens where they can.
	GetToken(ctx context.Context) (string, error)

	// IsAuthenticated returns true if a token is available without user interaction.
	IsAuthenticated() bool
}

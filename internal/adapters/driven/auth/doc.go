// Package auth provides driven.TokenProvider implementations for the Drive backend.
//
//   - StaticTokenProvider: a fixed access token from the environment or config.
//   - FileTokenProvider: an OAuth token persisted as JSON and refreshed through
//     golang.org/x/oauth2 when a client ID and secret are configured.
package auth

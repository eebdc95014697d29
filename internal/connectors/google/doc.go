// Package google provides shared infrastructure for the Google Drive store.
//
// It contains:
//   - TokenSource adapter bridging driven.TokenProvider to oauth2.TokenSource
//   - Drive service and OAuth2 config factories
//   - Error mapping from googleapi errors to domain errors (401, 403, 404, 429)
//   - Rate limiting to respect Drive quotas
//
// # Usage
//
//	ts := google.NewTokenSource(ctx, tokenProvider)
//	svc, err := google.NewDriveService(ctx, ts)
//	store := drive.NewStore(svc, google.NewRateLimiter(google.DriveRateLimit), drive.DefaultConfig())
//
// # OAuth2 Scopes
//
//   - https://www.googleapis.com/auth/drive.file
//   - https://www.googleapis.com/auth/userinfo.email
package google

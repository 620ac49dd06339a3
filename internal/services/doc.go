// Package services implements the Spotify Web API client used by the
// now-playing service.
//
// # Authentication
//
// [SpotifyClient] wraps an [oauth2.Config] for the authorization-code flow:
// building the authorize URL, exchanging callback codes, and issuing
// refresh grants. Refresh grants go through the config's TokenSource, which
// retains the prior refresh token when Spotify does not rotate it.
//
// # Error Handling
//
// Upstream failures are classified into the shared taxonomy:
//   - [shared.ErrUpstreamAuth] : provider rejected the grant or token (4xx from the token endpoint, 401/403 from the API)
//   - [shared.ErrUpstreamTransient] : network errors, timeouts, and 5xx responses
//   - [shared.ErrAPIRequest] : any other unexpected response
//
// Callers map all three to generic outcomes; provider internals are never
// passed through to consumers.
package services

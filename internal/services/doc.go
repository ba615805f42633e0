// Package services defines the [TrackService] and [ImageService] interfaces
// for the two remote metadata backends and implements them for the Spotify
// Web API and the Jikan anime API.
//
// # Spotify Implementation
//
// [SpotifyClient] authenticates with the client-credentials grant. The access
// token is cached in process memory with expiry set five minutes before the
// server-declared lifetime, guarding against clock skew and tokens expiring
// mid-request. A fresh exchange happens lazily on the first request past
// expiry.
//
// All calls funnel through a shared retry primitive:
//   - HTTP 429 sleeps for the server's Retry-After hint (default 1s) and
//     retries on a branch separate from failure backoff
//   - other failures back off exponentially (1s, 2s, 4s) between attempts
//   - the search and entity-fetch methods are best-effort and convert any
//     remaining error into an empty result
//
// # Jikan Implementation
//
// [JikanClient] performs unauthenticated free-text anime searches. Outbound
// calls are paced with a [rate.Limiter] to stay under Jikan's ~3 req/s cap,
// and results (misses included) are cached by normalized origin for the
// process lifetime.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : credentials absent from configuration
//   - [shared.ErrAuthFailed] : token exchange rejected
//   - [shared.ErrAPIRequest] : non-2xx, non-429 HTTP response
//   - [shared.ErrRateLimited] : 429 response (internal to the retry loop)
//   - [shared.ErrRetriesExhausted] : every retry attempt consumed
package services

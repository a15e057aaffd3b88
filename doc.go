// Package connect links application users to social platform accounts
// (Facebook, Instagram, TikTok, Threads) and manages the credential
// lifecycle of those links.
//
// Flow orchestration:
//   - Each provider implements ProviderFlow (scope resolution, consent
//     URL, code exchange). Optional capabilities are separate interfaces
//     the Orchestrator detects at runtime: TokenIntrospector validates a
//     fresh token against the app, ProfileResolver locates the platform
//     account, TokenRefresher rotates credentials, MetadataBuilder shapes
//     the persisted payload.
//   - Orchestrator.Initiate encodes the acting user into a CSRF state and
//     hands out the authorization URL; Complete runs the callback checks
//     in a fixed order (consent error, code, state, exchange,
//     introspection, profile, persist) and short-circuits on the first
//     failure.
//
// Persistence:
//   - Connections stores one row per (user, provider) pair, keyed by a
//     deterministic id so repeated connects update credentials in place.
//     Disconnecting soft-deletes the row; reconnecting revives it.
//   - Facebook completions can opportunistically reconcile the owning
//     user's name and email through UserDirectory; a colliding email is
//     rejected without undoing the saved connection.
//
// Everything provider-facing flows through the go-errors taxonomy: each
// failure kind carries a stable connect_* text code the HTTP layer and
// callers can branch on.
package connect

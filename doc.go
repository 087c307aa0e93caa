// Package auth provides the authentication core of the starter: password
// hashing, JWT issuance, refresh token rotation, user persistence and the
// go-router controllers that expose them.
//
// Stores:
//   - UserStore and RefreshTokenStore are implemented over Bun (sqlite and
//     postgres) in this package and over MongoDB in the repository package.
//     Emails are normalized before they are stored and are unique.
//   - Refresh tokens are only persisted as their SHA-256 hash. Every refresh
//     revokes the presented token and issues a new pair. Revoke reports
//     whether it changed a live row, so only one of two concurrent refreshes
//     with the same token wins.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and
//     UserService to describe registration, login, refresh, logout, profile
//     and deletion events. Sinks run best-effort (errors are logged) so you can
//     forward to a file or queue without blocking authentication.
//
// HTTP:
//   - Every response is a Success or Failure envelope. NewErrorHandler maps
//     errors carrying a go-errors category or code to the matching status.
//   - RegisterRoutes mounts the controllers on any router.Router[T].
//     NewFiberErrorHandler covers what fiber raises before a route runs,
//     such as unmatched paths.
package auth

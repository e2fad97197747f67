// Package session implements ProjectFlow's authentication and
// session-management layer. It owns the logged-in user's lifecycle across
// two interchangeable backends: a bespoke REST credential service
// (provider/direct) and a hosted identity service with a separate profile
// store (provider/managed).
//
// The package is organized around three pieces:
//
//   - Backend: the capability set both adapters implement (sign up, log
//     in, log out, current user, list users).
//   - Controller: the stateful core. It composes a Backend with a
//     TokenStore and SnapshotStore, orchestrates initialization and
//     restoration, and guards every transition with an explicit state
//     machine.
//   - View: the read-mostly projection handed to the rest of the
//     application (current user, loading flag, cached user list, derived
//     queries, change subscriptions).
//
// The persisted token and the cached user snapshot are best-effort
// optimizations, never authoritative: a credential rejected during
// re-validation evicts both.
package session

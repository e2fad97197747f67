// Package managed implements session.Backend against a hosted identity
// service with server-managed sessions plus a row-level-secured profile
// table. Identity lives in the service; the profile row carries the
// application's User shape and is keyed by the account id the service
// assigns.
//
// Signup is a two-step operation: create the identity account, then
// insert the profile row. When the second step fails the account already
// exists remotely; the adapter surfaces that as a typed inconsistency
// error carrying the orphaned account id, it does not retry.
package managed

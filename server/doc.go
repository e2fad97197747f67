// Package server is the reference implementation of the Direct
// credential service: the REST surface the direct adapter talks to.
// Accounts live in sqlite behind a bun repository, passwords are bcrypt
// hashed, and sessions are stateless HS256 bearer tokens with a 7-day
// validity horizon.
package server

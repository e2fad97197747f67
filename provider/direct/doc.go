// Package direct implements session.Backend against the bespoke REST
// credential service: bearer tokens minted by the server, held by the
// client in a session.TokenStore, attached to every authenticated call.
package direct

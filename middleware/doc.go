// Package middleware exposes the HTTP access gate built on top of
// authgate.Engine session validation.
//
// # Gate
//
// [Gate] classifies each request path as public, protected, admin-only,
// or unmatched, reads the session credential from a cookie or bearer
// header, and applies a fixed decision table: unauthenticated requests
// on protected paths redirect to login with the original path preserved,
// authenticated requests on the auth pages redirect to the dashboard,
// and admin paths additionally require the admin role. API prefixes get
// status codes instead of redirects.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does not
// parse credentials itself and it makes no authorization decision beyond
// the decision table; validation is delegated to Engine.ValidateSession
// and every validation failure is treated as an absent session.
package middleware

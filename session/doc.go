// Package session issues and validates the signed session credential that
// proves a prior successful authentication.
//
// The credential is stateless: the server holds no session record, and a
// credential is reconstructed entirely from its own signed claims plus the
// configured signing secret. Claims are immutable once issued; role or
// verification changes take effect only on the next issuance. Validation
// failures are deliberately uniform: callers cannot distinguish a tampered
// credential from an expired one.
//
// Logout with a purely stateless credential is client-side only. When that
// is not acceptable, an optional Redis-backed RevocationList records the
// jti of logged-out credentials until their natural expiry and Validate
// checks it, failing closed.
package session

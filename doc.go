// Package authgate is an embeddable credential-verification and
// session-authorization core for document-database web applications.
//
// The Engine facade orchestrates password hashing, single-use token flows
// (email verification, password reset), stateless signed session
// credentials, and the per-request access gate. Persistence and outbound
// email are collaborator interfaces supplied by the caller; reference
// implementations live in the store and mail subpackages.
//
// Construct an Engine with the Builder:
//
//	engine, err := authgate.New().
//		WithConfig(cfg).
//		WithStore(principals).
//		WithSender(mailer).
//		Build()
//
// All security-relevant failures are collapsed at the boundary:
// ErrInvalidCredentials, ErrInvalidOrExpiredToken, and the session
// package's uniform ErrInvalid deliberately reveal nothing about which
// check failed. Infrastructure failures (ErrStoreUnavailable,
// ErrDeliveryUnavailable) stay distinct so operators can alert on them
// separately from auth rejection traffic.
package authgate

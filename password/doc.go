// Package password hashes and verifies credential secrets with argon2id.
//
// Hashes are emitted in PHC string format, so every hash carries its own
// salt and cost parameters and Verify needs no side-channel state. Hash
// and Verify are deliberately slow; callers must treat them as blocking,
// non-trivial-latency operations.
package password

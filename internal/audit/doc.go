// Package audit implements async event dispatching for security-relevant
// operations.
//
// The package owns buffering and sink delivery only. Which events to emit
// is the Engine's decision, and nothing here filters or suppresses them.
package audit

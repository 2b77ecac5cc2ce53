// Package errors provides structured errors with stable codes for the
// Reflow runtime. Codes let tooling and tests branch on the condition
// without string matching, and categories group errors by the runtime
// area that produced them.
package errors

// Package textops performs small text-file edits: regex replacement, line
// filtering, and idempotent line insertion.
package textops

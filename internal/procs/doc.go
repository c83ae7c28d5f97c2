// Package procs wraps the platform process tools: executable lookup,
// process listing, and kill-by-image-name.
package procs

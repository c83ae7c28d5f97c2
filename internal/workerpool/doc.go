// Package workerpool runs background jobs on a fixed set of workers with
// future-based result retrieval and graceful shutdown.
package workerpool

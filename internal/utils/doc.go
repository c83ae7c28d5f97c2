// Package utils bundles shared infrastructure for the win_scripts CLI:
// a zap logger factory with optional timestamped file sinks, a Viper-backed
// configuration loader, context accessors for command execution, and small
// writer helpers.
package utils

// Package envpath keeps Windows environment variables and the Path registry
// value consistent: variables are registered once per value, literal
// directories are replaced by %VAR% aliases, duplicates are collapsed by
// resolved path, and the serialized Path follows a fixed group order so
// repeated runs leave the registry byte for byte unchanged.
package envpath

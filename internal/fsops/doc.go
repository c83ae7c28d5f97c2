// Package fsops provides filesystem helpers over an abstract afero
// filesystem: directory and file lifecycle, tree copies, SHA-256 hashing,
// concurrent directory scans, unique temporary paths, and HTTP downloads.
package fsops

// Package archive creates and extracts zip archives over an abstract
// filesystem, rejecting entries that would escape the extraction root.
package archive

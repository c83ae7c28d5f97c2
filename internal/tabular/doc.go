// Package tabular reads and writes CSV tables, both as raw row slices and as
// header-keyed records.
package tabular

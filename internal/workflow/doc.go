// Package workflow runs YAML-defined setup workflows: ordered steps that
// register environment variables, install packages, run commands, build
// python applications, download files, extract archives, stop processes,
// wait for ports, and pin file lines, stopping at the first failure. Step
// outcomes can optionally be appended to a CSV report.
package workflow

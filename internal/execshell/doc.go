// Package execshell provides structured helpers for invoking external tools.
//
// It wraps os/exec with logging via ShellExecutor, exposes OSCommandRunner for
// default process execution, and defines abstractions used throughout
// win_scripts to run reg.exe, winget, python, and other CLIs in a testable
// manner.
package execshell

// Package registry reads and writes Windows environment registry keys through
// the reg.exe command-line tool. It deliberately avoids native registry API
// bindings so the package stays testable with fake command runners on every
// platform.
package registry

// Package winget installs packages and checks their presence through the
// winget package manager.
package winget

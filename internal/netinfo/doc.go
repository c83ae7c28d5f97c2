// Package netinfo answers small questions about the local network: hostname,
// non-loopback addresses, free TCP ports, and port reachability.
package netinfo

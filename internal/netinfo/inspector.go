package netinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	tcpNetworkConstant         = "tcp"
	anyPortAddressConstant     = "127.0.0.1:0"
	portProbeIntervalConstant  = 250 * time.Millisecond
	portProbeDialTimeoutLength = time.Second

	hostnameFailureTemplateConstant  = "resolving hostname: %w"
	addressesFailureTemplateConstant = "listing interface addresses: %w"
	freePortFailureTemplateConstant  = "probing for a free port: %w"
	waitForPortTemplateConstant      = "waiting for %s: %w"
)

// ErrPortNotReachable indicates the awaited address did not accept a
// connection before the context expired.
var ErrPortNotReachable = errors.New("port not reachable before deadline")

// Hostname returns the machine's hostname.
func Hostname() (string, error) {
	resolvedHostname, hostnameError := os.Hostname()
	if hostnameError != nil {
		return "", fmt.Errorf(hostnameFailureTemplateConstant, hostnameError)
	}
	return resolvedHostname, nil
}

// LocalAddresses returns the machine's non-loopback unicast IP addresses.
func LocalAddresses() ([]string, error) {
	interfaceAddresses, listError := net.InterfaceAddrs()
	if listError != nil {
		return nil, fmt.Errorf(addressesFailureTemplateConstant, listError)
	}

	localAddresses := []string{}
	for _, interfaceAddress := range interfaceAddresses {
		ipNetwork, isIPNetwork := interfaceAddress.(*net.IPNet)
		if !isIPNetwork || ipNetwork.IP.IsLoopback() {
			continue
		}
		localAddresses = append(localAddresses, ipNetwork.IP.String())
	}
	return localAddresses, nil
}

// FreeTCPPort asks the kernel for an unused local TCP port.
func FreeTCPPort() (int, error) {
	portListener, listenError := net.Listen(tcpNetworkConstant, anyPortAddressConstant)
	if listenError != nil {
		return 0, fmt.Errorf(freePortFailureTemplateConstant, listenError)
	}
	defer portListener.Close()

	return portListener.Addr().(*net.TCPAddr).Port, nil
}

// WaitForPort dials hostAddress:port until a connection succeeds or the
// context expires.
func WaitForPort(executionContext context.Context, hostAddress string, port int) error {
	targetAddress := net.JoinHostPort(hostAddress, strconv.Itoa(port))
	dialer := &net.Dialer{Timeout: portProbeDialTimeoutLength}

	for {
		connection, dialError := dialer.DialContext(executionContext, tcpNetworkConstant, targetAddress)
		if dialError == nil {
			return connection.Close()
		}
		if contextError := executionContext.Err(); contextError != nil {
			return fmt.Errorf(waitForPortTemplateConstant, targetAddress, errors.Join(ErrPortNotReachable, contextError))
		}

		probeTimer := time.NewTimer(portProbeIntervalConstant)
		select {
		case <-executionContext.Done():
			probeTimer.Stop()
			return fmt.Errorf(waitForPortTemplateConstant, targetAddress, errors.Join(ErrPortNotReachable, executionContext.Err()))
		case <-probeTimer.C:
		}
	}
}

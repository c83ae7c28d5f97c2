package netinfo_test

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deskware/win_scripts/internal/netinfo"
)

func TestHostnameIsNonEmpty(testInstance *testing.T) {
	resolvedHostname, hostnameError := netinfo.Hostname()
	require.NoError(testInstance, hostnameError)
	require.NotEmpty(testInstance, resolvedHostname)
}

func TestFreeTCPPortIsBindable(testInstance *testing.T) {
	freePort, portError := netinfo.FreeTCPPort()
	require.NoError(testInstance, portError)
	require.Greater(testInstance, freePort, 0)

	portListener, listenError := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(freePort)))
	require.NoError(testInstance, listenError)
	require.NoError(testInstance, portListener.Close())
}

func TestWaitForPortSucceedsOnListeningPort(testInstance *testing.T) {
	portListener, listenError := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(testInstance, listenError)
	defer portListener.Close()
	listeningPort := portListener.Addr().(*net.TCPAddr).Port

	waitContext, cancelWait := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelWait()
	require.NoError(testInstance, netinfo.WaitForPort(waitContext, "127.0.0.1", listeningPort))
}

func TestWaitForPortFailsWhenNothingListens(testInstance *testing.T) {
	closedPort, portError := netinfo.FreeTCPPort()
	require.NoError(testInstance, portError)

	waitContext, cancelWait := context.WithTimeout(context.Background(), 600*time.Millisecond)
	defer cancelWait()

	waitError := netinfo.WaitForPort(waitContext, "127.0.0.1", closedPort)
	require.ErrorIs(testInstance, waitError, netinfo.ErrPortNotReachable)
}

func TestLocalAddressesExcludeLoopback(testInstance *testing.T) {
	localAddresses, listError := netinfo.LocalAddresses()
	require.NoError(testInstance, listError)
	for _, localAddress := range localAddresses {
		parsedAddress := net.ParseIP(localAddress)
		require.NotNil(testInstance, parsedAddress)
		require.False(testInstance, parsedAddress.IsLoopback())
	}
}

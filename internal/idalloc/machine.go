package idalloc

import (
	"errors"
	"math/rand"
	"net"
	"os"

	"github.com/cespare/xxhash/v2"
)

var errNoHostIdentity = errors.New("no host identity available")

// interfaceAddrs and hostname are seams for tests.
var (
	interfaceAddrs = net.InterfaceAddrs
	hostname       = os.Hostname
)

// LocalHostIdentity returns the first non-loopback unicast address of the
// host, falling back to the hostname.
func LocalHostIdentity() (string, error) {
	if addrs, err := interfaceAddrs(); err == nil {
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() || !ipNet.IP.IsGlobalUnicast() {
				continue
			}
			return ipNet.IP.String(), nil
		}
	}

	name, err := hostname()
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", errNoHostIdentity
	}
	return name, nil
}

// DeriveMachineID hashes the host identity into [0, MaxMachineID]. A random
// machine id is picked when the identity source fails.
func DeriveMachineID(identity func() (string, error)) int64 {
	if identity != nil {
		if host, err := identity(); err == nil && host != "" {
			return int64(xxhash.Sum64String(host) % (MaxMachineID + 1))
		}
	}
	return rand.Int63n(MaxMachineID + 1)
}

package util

import (
	"net"
	"syscall"

	"github.com/pkg/errors"
)

// IsDisallowedIP reports whether hostIP must not be reached on behalf of a
// caller. Unparseable input is disallowed.
func IsDisallowedIP(hostIP string) bool {
	ip := net.ParseIP(hostIP)
	if ip == nil {
		return true
	}
	return ip.IsMulticast() || ip.IsUnspecified() || ip.IsLoopback() || ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()
}

// publicOnly is a net.Dialer Control hook. It runs after name resolution,
// so a hostname resolving to an internal address is refused too.
func publicOnly(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return errors.Wrap(err, "parsing dial address")
	}
	if IsDisallowedIP(host) {
		return errors.Errorf("ip address %s is not allowed", host)
	}
	return nil
}

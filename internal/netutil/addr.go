package netutil

import (
	"errors"
	"fmt"
	"net"

	"github.com/jackpal/gateway"
)

// probeTargets are only used to select a route; UDP "dialing" sends nothing.
var probeTargets = []string{
	"8.8.8.8:80",
	"1.1.1.1:80",
	"9.9.9.9:80",
}

var (
	discoverInterface = gateway.DiscoverInterface
	probeRoute        = probe
)

// OutboundIP returns the local address other LAN hosts can reach us on:
// the address of the interface facing the default gateway, or failing
// that, the source address the OS picks for a route to the internet.
func OutboundIP() (net.IP, error) {
	errs := make([]error, 0, len(probeTargets)+1)

	ip, err := discoverInterface()
	if err == nil && usable(ip) {
		return ip, nil
	}
	if err == nil {
		err = fmt.Errorf("gateway interface address %v not usable", ip)
	}
	errs = append(errs, err)

	for _, target := range probeTargets {
		ip, err := probeRoute(target)
		if err == nil {
			return ip, nil
		}

		errs = append(errs, err)
	}

	return nil, fmt.Errorf("could not determine outbound address: %w", errors.Join(errs...))
}

func probe(target string) (net.IP, error) {
	conn, err := net.Dial("udp4", target)
	if err != nil {
		return nil, err
	}
	defer CloseConns(conn)

	localAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || !usable(localAddr.IP) {
		return nil, fmt.Errorf("no usable local address for %s", target)
	}

	return localAddr.IP, nil
}

func usable(ip net.IP) bool {
	return ip != nil && !ip.IsUnspecified() && !ip.IsLoopback()
}

// IsWildcardHost reports whether host binds every interface.
func IsWildcardHost(host string) bool {
	if host == "" {
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.IsUnspecified()
}

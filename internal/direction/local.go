package direction

import (
	"fmt"
	"net"
)

// DiscoverLocal returns the loopback addresses plus every IPv4 address bound to
// an up, non-loopback interface.
func DiscoverLocal() (LocalAddresses, error) {
	locals := NewLocalAddresses("127.0.0.1", "::1")

	ifaces, err := net.Interfaces()
	if err != nil {
		return locals, fmt.Errorf("failed to list network interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.IsLoopback() {
				continue
			}
			if v4 := ipNet.IP.To4(); v4 != nil {
				locals[v4.String()] = struct{}{}
			}
		}
	}
	return locals, nil
}

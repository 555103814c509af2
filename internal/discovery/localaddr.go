package discovery

import (
	"net"
	"strings"
)

// addressPriority ranks an IP string for display in connect info.
// Lower is better; common consumer router subnets win over everything
// else so the address shown is the one a client on the same LAN can
// actually reach.
func addressPriority(addr string) uint8 {
	switch {
	case strings.HasPrefix(addr, "192.168.1.") || strings.HasPrefix(addr, "192.168.0."):
		return 0
	case strings.HasPrefix(addr, "172.16."):
		return 1
	case strings.HasPrefix(addr, "10."):
		return 2
	default:
		return 255
	}
}

// chooseAddress picks the best candidate by priority. Ties keep the
// first candidate seen. Returns "0.0.0.0" when there are no candidates.
func chooseAddress(addrs []string) string {
	if len(addrs) == 0 {
		return "0.0.0.0"
	}

	best := addrs[0]
	bestPriority := addressPriority(best)
	for _, addr := range addrs[1:] {
		if p := addressPriority(addr); p < bestPriority {
			best = addr
			bestPriority = p
		}
	}
	return best
}

// localAddresses collects the machine's usable unicast addresses,
// skipping loopback, link-local, and unspecified entries.
func localAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}

	var candidates []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}

		ip := ipNet.IP
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			continue
		}

		candidates = append(candidates, ip.String())
	}

	return candidates
}

// LocalAddress returns the best local IP for building a connect string.
// Falls back to "0.0.0.0" when no usable address exists.
func LocalAddress() string {
	return chooseAddress(localAddresses())
}

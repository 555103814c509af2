// Package discovery announces a running server on the local network and
// selects the address shown to users for connecting.
//
// # mDNS Advertisement
//
// Advertise registers an "_obswebsocket._tcp" service via zeroconf so
// clients on the same network can find the server without typing an
// address. TXT records carry the protocol version and whether
// authentication is required:
//
//	ad, err := discovery.Advertise("obsws", 4455, cfg.TXTRecords())
//	if err != nil {
//	    return err
//	}
//	defer ad.Shutdown()
//
// # Local Address Selection
//
// LocalAddress picks the machine address most likely to be reachable by
// other devices on the LAN, preferring common consumer router subnets
// (192.168.1.x, 192.168.0.x, then 172.16.x, then 10.x). It returns
// "0.0.0.0" when no usable interface address exists.
package discovery

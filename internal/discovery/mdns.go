package discovery

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type advertised by obsws servers
	ServiceType = "_obswebsocket._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."
)

// Advertiser announces a running server on the local network via mDNS so
// clients can find it without typing an address. It wraps a zeroconf
// registration; Shutdown withdraws the announcement.
type Advertiser struct {
	server   *zeroconf.Server
	instance string
	port     int
}

// Advertise registers the service on all multicast-capable interfaces.
// TXT records are "key=value" strings describing the server (protocol
// version, whether auth is required).
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	if instance == "" {
		instance = "obsws"
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	return &Advertiser{
		server:   server,
		instance: instance,
		port:     port,
	}, nil
}

// Instance returns the advertised instance name
func (a *Advertiser) Instance() string {
	return a.instance
}

// Port returns the advertised port
func (a *Advertiser) Port() int {
	return a.port
}

// Shutdown withdraws the mDNS announcement. Safe to call once; the
// underlying responder sends goodbye packets before going quiet.
func (a *Advertiser) Shutdown() {
	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

package discovery

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD service type advertised on the local network
const ServiceType = "_markedit._tcp"

// Advertise announces the editor on the local network until the returned
// server is shut down.
func Advertise(port int, version string) (*mdns.Server, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(host, ServiceType, "", "", port, nil, TXT(version))
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("failed to start mDNS server: %w", err)
	}

	slog.Info("Advertising on local network", "service", ServiceType, "host", host, "port", port)
	return server, nil
}

// TXT builds the TXT record payload
func TXT(version string) []string {
	return []string{"app=markedit", "version=" + version, "api=/api"}
}

// Browse reports each editor found on the local network once, as host:port
func Browse(found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		seen := make(map[string]bool)
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			addr := fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port)
			if seen[addr] {
				continue
			}
			seen[addr] = true
			found(addr)
		}
	}()
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.DisableIPv6 = true
	err := mdns.Query(params)
	close(entries)
	<-done
	return err
}

package devices

import (
	"fmt"
	"io"
	"log"
	"net"
	"net/url"
	"time"

	"github.com/alexballas/go-ssdp"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

const (
	googlecastService = "_googlecast._tcp"
	dialServiceType   = "urn:dial-multiscreen-org:service:dial:1"
)

// Discover scans the local network for cast targets and resolves their
// friendly names. The scan runs a multicast DNS query for the googlecast
// service plus an SSDP search for the DIAL service, deduplicates by
// address in first-seen order and then probes each device's description
// document sequentially. A device whose name cannot be resolved is kept
// with the name "Unknown".
//
// Zero devices is an empty slice, not an error. Discover fails only when
// every discovery transport failed.
func Discover(timeout time.Duration, logger zerolog.Logger) ([]Device, error) {
	addrs, mdnsErr := scanMDNS(timeout)
	if mdnsErr != nil {
		logger.Debug().Str("Method", "Discover").Err(mdnsErr).Msg("mdns scan failed")
	}

	ssdpAddrs, ssdpErr := scanSSDP(timeout)
	if ssdpErr != nil {
		logger.Debug().Str("Method", "Discover").Err(ssdpErr).Msg("ssdp scan failed")
	}

	if mdnsErr != nil && ssdpErr != nil {
		return nil, fmt.Errorf("%w: mdns: %v, ssdp: %v", ErrDiscovery, mdnsErr, ssdpErr)
	}

	addrs = mergeAddrs(addrs, ssdpAddrs)

	out := make([]Device, 0, len(addrs))
	for _, addr := range addrs {
		name, err := FriendlyName(descriptionURL(addr))
		if err != nil {
			logger.Debug().Str("Method", "Discover").Str("Addr", addr).Err(err).Msg("name probe failed")
			name = UnknownName
		}
		out = append(out, Device{Name: name, Addr: addr})
	}

	return out, nil
}

func scanMDNS(timeout time.Duration) ([]string, error) {
	entriesCh := make(chan *mdns.ServiceEntry, 256)
	doneCh := make(chan []string)
	go func() {
		doneCh <- collectAddrs(entriesCh)
	}()

	params := mdns.DefaultParams(googlecastService)
	params.Entries = entriesCh
	params.Timeout = timeout
	params.WantUnicastResponse = true
	params.Logger = log.New(io.Discard, "", 0)
	err := mdns.Query(params)

	close(entriesCh)
	addrs := <-doneCh

	if err != nil {
		return nil, fmt.Errorf("mdns query: %w", err)
	}
	return addrs, nil
}

// collectAddrs reads service entries until the channel closes and returns
// the unique addresses in the order they were first seen.
func collectAddrs(entries <-chan *mdns.ServiceEntry) []string {
	var addrs []string
	seen := make(map[string]struct{})

	add := func(ip net.IP) {
		if ip == nil {
			return
		}
		addr := ip.String()
		if _, ok := seen[addr]; ok {
			return
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	for entry := range entries {
		if entry == nil {
			continue
		}
		add(entry.AddrV4)
		add(entry.AddrV6)
	}

	return addrs
}

// scanSSDP searches for DIAL-capable devices. Older cast hardware answers
// DIAL searches even when an mDNS query gets filtered by the network.
func scanSSDP(timeout time.Duration) ([]string, error) {
	waitSec := int(timeout / time.Second)
	if waitSec < 1 {
		waitSec = 1
	}

	list, err := ssdp.Search(dialServiceType, waitSec, "")
	if err != nil {
		return nil, fmt.Errorf("ssdp search: %w", err)
	}

	var addrs []string
	seen := make(map[string]struct{})
	for _, srv := range list {
		u, err := url.Parse(srv.Location)
		if err != nil {
			continue
		}
		addr := u.Hostname()
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		addrs = append(addrs, addr)
	}

	return addrs, nil
}

func mergeAddrs(primary, extra []string) []string {
	seen := make(map[string]struct{}, len(primary))
	for _, addr := range primary {
		seen[addr] = struct{}{}
	}
	for _, addr := range extra {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		primary = append(primary, addr)
	}
	return primary
}

func descriptionURL(addr string) string {
	return "http://" + net.JoinHostPort(addr, "8008") + "/ssdp/device-desc.xml"
}

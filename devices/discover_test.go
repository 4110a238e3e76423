package devices

import (
	"net"
	"testing"

	"github.com/hashicorp/mdns"
	"github.com/stretchr/testify/require"
)

func TestCollectAddrsDeduplicatesFirstSeen(t *testing.T) {
	assertions := require.New(t)

	entries := make(chan *mdns.ServiceEntry, 8)
	entries <- &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.5")}
	entries <- &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.7")}
	// Duplicate announcements within the scan window.
	entries <- &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.5")}
	entries <- &mdns.ServiceEntry{AddrV4: net.ParseIP("10.0.0.7")}
	entries <- nil
	entries <- &mdns.ServiceEntry{}
	close(entries)

	addrs := collectAddrs(entries)
	assertions.Equal([]string{"10.0.0.5", "10.0.0.7"}, addrs)
}

func TestCollectAddrsKeepsV6(t *testing.T) {
	assertions := require.New(t)

	entries := make(chan *mdns.ServiceEntry, 2)
	entries <- &mdns.ServiceEntry{
		AddrV4: net.ParseIP("10.0.0.5"),
		AddrV6: net.ParseIP("fe80::1"),
	}
	close(entries)

	addrs := collectAddrs(entries)
	assertions.Equal([]string{"10.0.0.5", "fe80::1"}, addrs)
}

func TestMergeAddrsSkipsKnown(t *testing.T) {
	assertions := require.New(t)

	merged := mergeAddrs([]string{"10.0.0.5", "10.0.0.7"}, []string{"10.0.0.7", "10.0.0.9"})
	assertions.Equal([]string{"10.0.0.5", "10.0.0.7", "10.0.0.9"}, merged)
}

func TestDescriptionURL(t *testing.T) {
	assertions := require.New(t)
	assertions.Equal("http://10.0.0.5:8008/ssdp/device-desc.xml", descriptionURL("10.0.0.5"))
	assertions.Equal("http://[fe80::1]:8008/ssdp/device-desc.xml", descriptionURL("fe80::1"))
}

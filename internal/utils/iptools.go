package utils

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// LocalIP finds the outbound interface address the cast device can reach
// us on. The UDP dial never sends a packet, it only resolves routing.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("LocalIP UDP call error: %w", err)
	}
	defer conn.Close()

	host, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		return "", fmt.Errorf("LocalIP split error: %w", err)
	}

	return host, nil
}

// CheckAndPickPort returns the first free TCP port on ip starting at port.
func CheckAndPickPort(ip string, port int) (string, error) {
	var numberOfchecks int
CHECK:
	numberOfchecks++
	conn, err := net.Listen("tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		if strings.Contains(err.Error(), "address already in use") {
			if numberOfchecks == 1000 {
				return "", fmt.Errorf("port pick error. Checked 1000 ports: %w", err)
			}
			port++
			goto CHECK
		}
		return "", fmt.Errorf("port pick error: %w", err)
	}
	conn.Close()
	return strconv.Itoa(port), nil
}

// HostPortIsAlive checks if a device at the given address is reachable
// via a TCP connection within 2 seconds.
func HostPortIsAlive(h string) bool {
	conn, err := net.DialTimeout("tcp", h, 2*time.Second)
	if err != nil {
		return false
	}
	defer conn.Close()
	return true
}

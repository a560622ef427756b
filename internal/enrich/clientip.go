package enrich

import (
	"net"
	"strings"
)

// ClientIP picks the original client address: the left-most X-Forwarded-For
// entry when it parses as an IP, otherwise the host part of the transport peer
// address.
func ClientIP(forwardedFor, remoteAddr string) string {
	if forwardedFor != "" {
		first, _, _ := strings.Cut(forwardedFor, ",")
		if ip := net.ParseIP(strings.TrimSpace(first)); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return strings.TrimSpace(remoteAddr)
	}
	return host
}

package utils

import (
	"fmt"
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// UnknownIP is recorded when no client address can be resolved.
const UnknownIP = "unknown"

// ClientIP extracts the visitor IP considering common proxy headers.
// Priority: CF-Connecting-IP > X-Real-IP > first of X-Forwarded-For > socket address.
// Proxy headers are only trusted when they carry a public address.
func ClientIP(c *gin.Context) string {
	if v := stripPort(strings.TrimSpace(c.GetHeader("CF-Connecting-IP"))); isValidPublicIP(v) {
		return v
	}
	if v := stripPort(strings.TrimSpace(c.GetHeader("X-Real-IP"))); isValidPublicIP(v) {
		return v
	}
	if v := strings.TrimSpace(c.GetHeader("X-Forwarded-For")); v != "" {
		first, _, _ := strings.Cut(v, ",")
		if cand := stripPort(strings.TrimSpace(first)); isValidPublicIP(cand) {
			return cand
		}
	}
	ip := c.RemoteIP()
	if net.ParseIP(ip) == nil {
		return UnknownIP
	}
	return ip
}

// MaskIP hides the host part of an address for display: the last IPv4 octet,
// or everything past the first four IPv6 groups.
func MaskIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ip
	}
	if v4 := parsed.To4(); v4 != nil {
		parts := strings.Split(v4.String(), ".")
		parts[3] = "xxx"
		return strings.Join(parts, ".")
	}
	b := parsed.To16()
	return fmt.Sprintf("%x:%x:%x:%x:xxxx",
		uint16(b[0])<<8|uint16(b[1]), uint16(b[2])<<8|uint16(b[3]),
		uint16(b[4])<<8|uint16(b[5]), uint16(b[6])<<8|uint16(b[7]))
}

func stripPort(ip string) string {
	if h, _, err := net.SplitHostPort(ip); err == nil {
		return h
	}
	return ip
}

func isValidPublicIP(ip string) bool {
	p := net.ParseIP(ip)
	if p == nil {
		return false
	}
	return !p.IsLoopback() && !p.IsPrivate() && !p.IsUnspecified()
}

package fetcher

import (
	"fmt"
	"net"
	"net/url"
)

// validateURL rejects anything that is not a plain http/https locator, and,
// when denyPrivateIPs is set, anything that resolves to a loopback,
// private, or link-local address. This is the SSRF guard every URL-based
// engine (http, rss, headless-browser) runs before dialing.
func validateURL(urlStr string, denyPrivateIPs bool) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url: scheme %q not allowed (only http/https)", u.Scheme)
	}
	hostname := u.Hostname()
	if hostname == "" {
		return fmt.Errorf("invalid url: empty hostname")
	}
	if !denyPrivateIPs {
		return nil
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return fmt.Errorf("invalid url: dns lookup failed for %s: %w", hostname, err)
	}
	for _, ip := range ips {
		if isPrivateIP(ip) {
			return fmt.Errorf("invalid url: %s resolves to private address %s", hostname, ip)
		}
	}
	return nil
}

// isPrivateIP reports whether ip is loopback, RFC1918/RFC4193 private, or
// link-local.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

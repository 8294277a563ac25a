// Package validation checks user-supplied tracking URLs before they enter
// the store.
package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// PageURLValidator validates URLs submitted for tracking.
type PageURLValidator struct {
	// AllowLocalhost permits localhost and loopback URLs.
	AllowLocalhost bool
	// AllowPrivateIPs permits RFC1918 and link-local addresses.
	AllowPrivateIPs bool
	// MaxLength caps the accepted URL length.
	MaxLength int
}

// NewPageURLValidator returns a validator with secure defaults: no
// localhost, no private address ranges.
func NewPageURLValidator() *PageURLValidator {
	return &PageURLValidator{
		AllowLocalhost:  false,
		AllowPrivateIPs: false,
		MaxLength:       2048,
	}
}

// NewPermissivePageURLValidator returns a validator that accepts local
// addresses, for development and tests.
func NewPermissivePageURLValidator() *PageURLValidator {
	return &PageURLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       2048,
	}
}

// ValidateAndNormalize checks input and returns the canonical URL string.
// A missing scheme defaults to https.
func (v *PageURLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}
	if strings.ContainsAny(input, "<>\"'`") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if !strings.HasPrefix(input, "http://") && !strings.HasPrefix(input, "https://") {
		input = "https://" + input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}

	if err := v.validateHost(parsed.Host); err != nil {
		return "", err
	}

	if strings.Contains(parsed.RawQuery, "<script") || strings.Contains(parsed.RawQuery, "javascript:") {
		return "", fmt.Errorf("suspicious query parameters detected")
	}

	return parsed.String(), nil
}

func (v *PageURLValidator) validateHost(host string) error {
	hostname := host
	if strings.Contains(host, ":") {
		var err error
		hostname, _, err = net.SplitHostPort(host)
		if err != nil {
			return fmt.Errorf("invalid host format: %w", err)
		}
	}

	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}

	return nil
}

func isLocalhost(hostname string) bool {
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

func isPrivateIP(ip net.IP) bool {
	private := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"127.0.0.0/8",
	}

	for _, cidr := range private {
		_, block, _ := net.ParseCIDR(cidr)
		if block != nil && block.Contains(ip) {
			return true
		}
	}

	if ip.To4() == nil {
		// Unique local (fc00::/7) and link-local (fe80::/10) IPv6 ranges.
		return ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLoopback()
	}

	return false
}

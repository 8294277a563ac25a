package validation

import (
	"net"
	"strings"
	"testing"
)

func TestNewPageURLValidator(t *testing.T) {
	v := NewPageURLValidator()
	if v == nil {
		t.Fatal("NewPageURLValidator returned nil")
	}

	// Check secure defaults
	if v.AllowLocalhost {
		t.Error("Expected AllowLocalhost to be false for security")
	}
	if v.AllowPrivateIPs {
		t.Error("Expected AllowPrivateIPs to be false for security")
	}
	if v.MaxLength != 2048 {
		t.Errorf("Expected MaxLength to be 2048, got %d", v.MaxLength)
	}
}

func TestNewPermissivePageURLValidator(t *testing.T) {
	v := NewPermissivePageURLValidator()
	if v == nil {
		t.Fatal("NewPermissivePageURLValidator returned nil")
	}

	if !v.AllowLocalhost {
		t.Error("Expected AllowLocalhost to be true for permissive mode")
	}
	if !v.AllowPrivateIPs {
		t.Error("Expected AllowPrivateIPs to be true for permissive mode")
	}
}

func TestValidateAndNormalize(t *testing.T) {
	v := NewPageURLValidator()

	tests := []struct {
		name        string
		input       string
		expected    string
		shouldError bool
		errorMsg    string
	}{
		{
			name:        "empty URL",
			input:       "",
			shouldError: true,
			errorMsg:    "URL cannot be empty",
		},
		{
			name:        "whitespace-only URL",
			input:       "   ",
			shouldError: true,
			errorMsg:    "URL cannot be empty",
		},
		{
			name:     "URL without protocol gets HTTPS",
			input:    "github.com/releases",
			expected: "https://github.com/releases",
		},
		{
			name:     "HTTP URL preserved",
			input:    "http://github.com/releases",
			expected: "http://github.com/releases",
		},
		{
			name:     "HTTPS URL preserved",
			input:    "https://github.com/releases",
			expected: "https://github.com/releases",
		},
		{
			name:        "URL too long",
			input:       "https://github.com/" + strings.Repeat("a", 3000),
			shouldError: true,
			errorMsg:    "URL too long",
		},
		{
			name:        "invalid characters",
			input:       "https://github.com/<script>alert(1)</script>",
			shouldError: true,
			errorMsg:    "invalid characters",
		},
		{
			name:        "localhost blocked by default",
			input:       "https://localhost/downloads",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "127.0.0.1 blocked by default",
			input:       "https://127.0.0.1/downloads",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "private IP blocked by default",
			input:       "https://192.168.1.1/downloads",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "no hostname",
			input:       "https:///downloads",
			shouldError: true,
			errorMsg:    "URL must have a valid hostname",
		},
		{
			name:        "XSS attempt with invalid characters",
			input:       "https://github.com/page?q=<script>alert(1)</script>",
			shouldError: true,
			errorMsg:    "invalid characters", // Characters blocked before query validation
		},
		{
			name:        "javascript in query params",
			input:       "https://github.com/page?redirect=javascript:alert(1)",
			shouldError: true,
			errorMsg:    "suspicious query parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateAndNormalize(tt.input)
			if tt.shouldError {
				if err == nil {
					t.Errorf("Expected error for input %q", tt.input)
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for input %q: %v", tt.input, err)
				}
				if tt.expected != "" && result != tt.expected {
					t.Errorf("Expected %q, got %q", tt.expected, result)
				}
				if result == "" {
					t.Error("Expected non-empty result for valid input")
				}
			}
		})
	}
}

func TestValidateAndNormalizePermissive(t *testing.T) {
	v := NewPermissivePageURLValidator()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "localhost allowed in permissive mode",
			input:    "https://localhost:8080/downloads",
			expected: "https://localhost:8080/downloads",
		},
		{
			name:     "127.0.0.1 allowed in permissive mode",
			input:    "http://127.0.0.1:3000/reports",
			expected: "http://127.0.0.1:3000/reports",
		},
		{
			name:     "private IP allowed in permissive mode",
			input:    "https://192.168.1.100/index.html",
			expected: "https://192.168.1.100/index.html",
		},
		{
			name:     "10.x.x.x private IP allowed",
			input:    "https://10.0.0.1/downloads",
			expected: "https://10.0.0.1/downloads",
		},
		{
			name:     "172.16.x.x private IP allowed",
			input:    "https://172.16.0.1/downloads",
			expected: "https://172.16.0.1/downloads",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateAndNormalize(tt.input)
			if err != nil {
				t.Errorf("Unexpected error for permissive validation of %q: %v", tt.input, err)
			}
			if result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestValidateHost(t *testing.T) {
	v := NewPageURLValidator()

	tests := []struct {
		name        string
		host        string
		shouldError bool
		errorMsg    string
	}{
		{
			name:        "regular domain",
			host:        "github.com",
			shouldError: false,
		},
		{
			name:        "domain with port",
			host:        "github.com:8080",
			shouldError: false,
		},
		{
			name:        "localhost",
			host:        "localhost",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "localhost with port",
			host:        "localhost:8080",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "127.0.0.1",
			host:        "127.0.0.1",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "IPv6 localhost with port",
			host:        "[::1]:8080",
			shouldError: true,
			errorMsg:    "localhost URLs are not permitted",
		},
		{
			name:        "private IP 192.168.x.x",
			host:        "192.168.1.1",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "private IP 10.x.x.x",
			host:        "10.0.0.1",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "private IP 172.16.x.x",
			host:        "172.16.0.1",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "link-local IP",
			host:        "169.254.1.1",
			shouldError: true,
			errorMsg:    "private IP addresses are not permitted",
		},
		{
			name:        "invalid host format",
			host:        "invalid::port::format",
			shouldError: true,
			errorMsg:    "invalid host format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.validateHost(tt.host)
			if tt.shouldError {
				if err == nil {
					t.Errorf("Expected error for host %q", tt.host)
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error containing %q, got %q", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error for host %q: %v", tt.host, err)
				}
			}
		})
	}
}

func TestIsLocalhost(t *testing.T) {
	tests := []struct {
		name     string
		hostname string
		expected bool
	}{
		{
			name:     "localhost",
			hostname: "localhost",
			expected: true,
		},
		{
			name:     "127.0.0.1",
			hostname: "127.0.0.1",
			expected: true,
		},
		{
			name:     "IPv6 localhost",
			hostname: "::1",
			expected: true,
		},
		{
			name:     "sub.localhost",
			hostname: "sub.localhost",
			expected: true,
		},
		{
			name:     "regular domain",
			hostname: "example.com",
			expected: false,
		},
		{
			name:     "public IP",
			hostname: "8.8.8.8",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isLocalhost(tt.hostname)
			if result != tt.expected {
				t.Errorf("isLocalhost(%q) = %v, expected %v", tt.hostname, result, tt.expected)
			}
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		name     string
		ip       string
		expected bool
	}{
		// Private IPv4 ranges
		{
			name:     "10.0.0.1",
			ip:       "10.0.0.1",
			expected: true,
		},
		{
			name:     "172.16.0.1",
			ip:       "172.16.0.1",
			expected: true,
		},
		{
			name:     "192.168.1.1",
			ip:       "192.168.1.1",
			expected: true,
		},
		{
			name:     "169.254.1.1 (link-local)",
			ip:       "169.254.1.1",
			expected: true,
		},
		{
			name:     "127.0.0.1 (loopback)",
			ip:       "127.0.0.1",
			expected: true,
		},
		// Public IPv4 addresses
		{
			name:     "8.8.8.8 (Google DNS)",
			ip:       "8.8.8.8",
			expected: false,
		},
		{
			name:     "1.1.1.1 (Cloudflare DNS)",
			ip:       "1.1.1.1",
			expected: false,
		},
		// IPv6 addresses
		{
			name:     "fc00:: (unique local)",
			ip:       "fc00::1",
			expected: true,
		},
		{
			name:     "fd00:: (unique local)",
			ip:       "fd00::1",
			expected: true,
		},
		{
			name:     "fe80:: (link-local)",
			ip:       "fe80::1",
			expected: true,
		},
		{
			name:     "2001:4860:4860::8888 (Google DNS IPv6)",
			ip:       "2001:4860:4860::8888",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip := net.ParseIP(tt.ip)
			if ip == nil {
				t.Fatalf("Failed to parse IP %q", tt.ip)
			}
			result := isPrivateIP(ip)
			if result != tt.expected {
				t.Errorf("isPrivateIP(%q) = %v, expected %v", tt.ip, result, tt.expected)
			}
		})
	}
}

func TestValidateAndNormalizeEdgeCases(t *testing.T) {
	// Custom length limit
	v := &PageURLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		MaxLength:       100,
	}

	longURL := "https://example.org/" + strings.Repeat("a", 200)
	_, err := v.ValidateAndNormalize(longURL)
	if err == nil || !strings.Contains(err.Error(), "too long") {
		t.Error("Expected error for URL exceeding MaxLength")
	}

	// Protocol addition
	v2 := NewPermissivePageURLValidator()
	result, err := v2.ValidateAndNormalize("github.com/releases")
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(result, "https://") {
		t.Errorf("Expected HTTPS protocol to be added, got %q", result)
	}

	// IPv6 address with port
	result, err = v2.ValidateAndNormalize("https://[2001:db8::1]:8080/downloads")
	if err != nil {
		t.Errorf("IPv6 address with port should be valid: %v", err)
	}
	expected := "https://[2001:db8::1]:8080/downloads"
	if result != expected {
		t.Errorf("Expected %q, got %q", expected, result)
	}
}

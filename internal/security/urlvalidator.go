package security

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

var (
	ErrPrivateIP     = errors.New("URL resolves to private IP address")
	ErrUntrustedHost = errors.New("URL host is not trusted")
	ErrInvalidScheme = errors.New("only HTTPS URLs are allowed")
)

// OpenAIImageHosts serve images returned by URL from the OpenAI images API.
var OpenAIImageHosts = []string{
	"oaidalleapiprodscus.blob.core.windows.net",
	"dalleprodsec.blob.core.windows.net",
}

// URLValidator decides whether a remote image may be fetched.
// An empty AllowedHosts accepts any public host.
type URLValidator struct {
	AllowedHosts []string
	AllowHTTP    bool
	AllowPrivate bool

	lookupIP func(host string) ([]net.IP, error)
}

func NewURLValidator(allowedHosts ...string) *URLValidator {
	return &URLValidator{AllowedHosts: allowedHosts}
}

// ForBaseURL trusts exactly the host of a configured base URL, including
// plain HTTP and local addresses, so a development preview server works.
func ForBaseURL(base string) (*URLValidator, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL: %q has no host", base)
	}
	return &URLValidator{
		AllowedHosts: []string{u.Hostname()},
		AllowHTTP:    true,
		AllowPrivate: true,
	}, nil
}

func (v *URLValidator) Validate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	switch parsed.Scheme {
	case "https":
	case "http":
		if !v.AllowHTTP {
			return ErrInvalidScheme
		}
	default:
		return ErrInvalidScheme
	}

	host := parsed.Hostname()

	if len(v.AllowedHosts) > 0 && !v.isAllowedHost(host) {
		return ErrUntrustedHost
	}

	if v.AllowPrivate {
		return nil
	}
	return v.validateHostIP(host)
}

func (v *URLValidator) isAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range v.AllowedHosts {
		allowed = strings.ToLower(allowed)
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

func (v *URLValidator) validateHostIP(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	lookup := v.lookupIP
	if lookup == nil {
		lookup = net.LookupIP
	}
	ips, err := lookup(host)
	if err != nil {
		return nil
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
	}

	return nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 0: // 0.0.0.0/8
			return true
		case ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127: // 100.64.0.0/10 (CGNAT)
			return true
		case ip4[0] == 192 && ip4[1] == 0 && ip4[2] == 0: // 192.0.0.0/24
			return true
		case ip4[0] == 192 && ip4[1] == 0 && ip4[2] == 2: // TEST-NET-1
			return true
		case ip4[0] == 198 && ip4[1] == 51 && ip4[2] == 100: // TEST-NET-2
			return true
		case ip4[0] == 203 && ip4[1] == 0 && ip4[2] == 113: // TEST-NET-3
			return true
		case ip4[0] >= 224: // multicast and reserved
			return true
		}
	}

	return false
}

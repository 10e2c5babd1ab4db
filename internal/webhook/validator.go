package webhook

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"

	"github.com/drydock-dev/drydock/internal/domain"
)

// ValidateURL rejects delivery URLs that could reach internal infrastructure.
// It runs at subscription time and again defensively before every send; a
// failure wraps ErrUnsafeURL and is never retried.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUnsafeURL, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q is not allowed", domain.ErrUnsafeURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: missing host", domain.ErrUnsafeURL)
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: localhost is not allowed", domain.ErrUnsafeURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return checkAddr(addr)
	}

	return nil
}

// checkAddr covers 10/8, 127/8, 169.254/16, 172.16/12, 192.168/16 on IPv4
// and loopback, fc00::/7, fe80::/10 on IPv6, including IPv4-mapped forms.
func checkAddr(addr netip.Addr) error {
	addr = addr.Unmap()
	switch {
	case addr.IsLoopback():
		return fmt.Errorf("%w: loopback address", domain.ErrUnsafeURL)
	case addr.IsPrivate():
		return fmt.Errorf("%w: private address", domain.ErrUnsafeURL)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return fmt.Errorf("%w: link-local address", domain.ErrUnsafeURL)
	case addr.IsUnspecified():
		return fmt.Errorf("%w: unspecified address", domain.ErrUnsafeURL)
	}
	return nil
}

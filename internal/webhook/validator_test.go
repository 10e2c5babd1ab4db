package webhook

import (
	"errors"
	"testing"

	"github.com/drydock-dev/drydock/internal/domain"
)

func TestValidateURL_Accepted(t *testing.T) {
	urls := []string{
		"https://example.com/hook",
		"http://hooks.example.com/events",
		"https://hooks.internal-tools.example.com:8443/cb",
		"https://203.0.113.10/receive",
	}
	for _, raw := range urls {
		if err := ValidateURL(raw); err != nil {
			t.Fatalf("expected %s to be accepted, got %v", raw, err)
		}
	}
}

func TestValidateURL_Rejected(t *testing.T) {
	urls := []string{
		"http://localhost/x",
		"http://localhost:8080/x",
		"http://api.localhost/x",
		"http://127.0.0.1/x",
		"http://127.0.0.1:9000/x",
		"http://192.168.1.5/x",
		"http://10.0.0.8/x",
		"http://172.16.4.2/x",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/x",
		"http://[::1]/x",
		"http://[fe80::1]/x",
		"http://[fd00::1]/x",
		"http://[::ffff:127.0.0.1]/x",
		"http://[::ffff:192.168.1.5]/x",
	}
	for _, raw := range urls {
		err := ValidateURL(raw)
		if !errors.Is(err, domain.ErrUnsafeURL) {
			t.Fatalf("expected %s to be rejected with ErrUnsafeURL, got %v", raw, err)
		}
	}
}

func TestValidateURL_SchemeAndShape(t *testing.T) {
	urls := []string{
		"ftp://example.com/x",
		"file:///etc/passwd",
		"gopher://example.com/x",
		"example.com/hook",
		"",
	}
	for _, raw := range urls {
		err := ValidateURL(raw)
		if !errors.Is(err, domain.ErrUnsafeURL) {
			t.Fatalf("expected %q to be rejected with ErrUnsafeURL, got %v", raw, err)
		}
	}
}

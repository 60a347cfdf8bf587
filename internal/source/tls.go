package source

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/epithet-ssh/netstr/pkg/config"
)

// s3Timeout bounds a whole GetObject, body included.
const s3Timeout = 5 * time.Minute

// checkEndpoint rejects plain http:// endpoints unless insecure mode is on.
func checkEndpoint(cfg config.S3Config) error {
	if strings.HasPrefix(cfg.Endpoint, "http://") && !cfg.Insecure {
		return fmt.Errorf("S3 endpoint %q uses http://; use https:// or set s3.insecure", cfg.Endpoint)
	}
	return nil
}

// newHTTPClient returns a client for S3-compatible endpoints with a private
// CA or no verification. It returns nil when the SDK default will do.
func newHTTPClient(cfg config.S3Config) (*http.Client, error) {
	if cfg.CACert == "" && !cfg.Insecure {
		return nil, nil
	}

	tlsCfg := &tls.Config{InsecureSkipVerify: cfg.Insecure}
	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate file %q: %w", cfg.CACert, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("failed to parse CA certificate file %q: no valid certificates found", cfg.CACert)
		}
		tlsCfg.RootCAs = pool
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Transport: transport, Timeout: s3Timeout}, nil
}

// Package tlsutil provides TLS configuration utilities for secure connections.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/c360/etlstreams/errors"
	"github.com/c360/etlstreams/pkg/security"
)

// LoadClientTLSConfig creates a tls.Config for HTTP/WebSocket clients from platform config
// Always uses system CA bundle first, CAFiles are additional trusted CAs
func LoadClientTLSConfig(cfg security.ClientTLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
	}

	// Start with system CA pool
	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		// If system pool unavailable, create empty pool
		rootCAs = x509.NewCertPool()
	}

	// Add additional CAs from config
	for _, caFile := range cfg.CAFiles {
		caPEM, err := os.ReadFile(caFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfig", fmt.Sprintf("read CA file %s", caFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(
				fmt.Errorf("invalid PEM data"),
				"tlsutil",
				"LoadClientTLSConfig",
				fmt.Sprintf("parse CA certificate from %s", caFile),
			)
		}
	}

	tlsConfig.RootCAs = rootCAs

	// Handle InsecureSkipVerify
	// Note: Setting this is intentional via config - operators know the security implications
	if cfg.InsecureSkipVerify {
		tlsConfig.InsecureSkipVerify = true
	}

	return tlsConfig, nil
}

// LoadClientTLSConfigWithMTLS creates a tls.Config for HTTP/WebSocket clients with optional mTLS support
func LoadClientTLSConfigWithMTLS(cfg security.ClientTLSConfig, mtlsCfg security.ClientMTLSConfig) (*tls.Config, error) {
	// Start with base client TLS config
	tlsConfig, err := LoadClientTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	if !mtlsCfg.Enabled {
		return tlsConfig, nil
	}

	// Load client certificate
	clientCert, err := tls.LoadX509KeyPair(mtlsCfg.CertFile, mtlsCfg.KeyFile)
	if err != nil {
		return nil, errors.WrapFatal(err, "tlsutil", "LoadClientTLSConfigWithMTLS",
			"load client certificate")
	}

	tlsConfig.Certificates = []tls.Certificate{clientCert}

	return tlsConfig, nil
}

// parseTLSVersion converts version string to crypto/tls constant
// Returns tls.VersionTLS12 if empty or invalid
func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	case "1.2":
		return tls.VersionTLS12
	default:
		return tls.VersionTLS12 // Safe default
	}
}

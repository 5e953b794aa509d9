// Package security provides platform-wide security configuration types
package security

// Config holds platform-wide security configuration
type Config struct {
	TLS TLSConfig `json:"tls,omitempty"`
}

// TLSConfig holds TLS configuration for outbound HTTP/WebSocket clients
type TLSConfig struct {
	Client ClientTLSConfig `json:"client,omitempty"`
}

// ClientMTLSConfig holds mTLS configuration for clients (client certificate provision)
type ClientMTLSConfig struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"` // Client certificate
	KeyFile  string `json:"key_file,omitempty"`  // Client private key
}

// ClientTLSConfig holds TLS configuration for HTTP/WebSocket clients.
// Always uses system CA bundle first, CAFiles are ADDITIONAL trusted CAs.
// Source gateways in industrial deployments often present certificates from a
// private CA, so the pipeline must be able to trust operator-provided bundles.
type ClientTLSConfig struct {
	CAFiles            []string `json:"ca_files,omitempty"`
	InsecureSkipVerify bool     `json:"insecure_skip_verify,omitempty"` // DEV/TEST ONLY
	MinVersion         string   `json:"min_version,omitempty"`

	// mTLS support for gateways that require client certificates
	MTLS ClientMTLSConfig `json:"mtls,omitempty"`
}

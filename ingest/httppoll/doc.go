// Package httppoll provides an HTTP polling ingestor for the ETLStreams platform.
//
// # Overview
//
// The API ingestor periodically fetches JSON records from configured HTTP
// endpoints and publishes them to the raw record subject. Endpoints are polled
// concurrently up to a configurable limit, with a per-endpoint request rate cap
// so polite polling survives aggressive intervals.
//
// # Quick Start
//
// Poll two REST endpoints every minute:
//
//	config := httppoll.Config{
//	    Endpoints: []httppoll.EndpointConfig{
//	        {Name: "orders", URL: "https://api.example.com/orders"},
//	        {Name: "customers", URL: "https://api.example.com/customers"},
//	    },
//	    PollInterval: 60,
//	}
//
//	rawConfig, _ := json.Marshal(config)
//	ing, err := httppoll.New(rawConfig, deps)
//
// # Response Formats
//
// Three response shapes decode into records:
//
//   - a JSON array of objects, one record per element
//   - an object with a "records" array
//   - a single object, treated as one record
//
// Anything else is a read error for that endpoint; other endpoints in the
// same round are unaffected.
//
// # Failure Isolation
//
// Endpoint fetches in one round run under a shared errgroup but never cancel
// each other: a non-2xx status, timeout, or decode failure is counted against
// that endpoint only and logged at Warn.
//
// Outbound TLS follows the platform security configuration, including private
// CA bundles and mTLS client certificates.
package httppoll

package component

import "fmt"

// EndpointPort - remote HTTP/WebSocket endpoint consumed as a source
type EndpointPort struct {
	Scheme    string             `json:"scheme"`             // "http", "https", "ws", "wss"
	URL       string             `json:"url"`                // Full endpoint URL
	Interface *InterfaceContract `json:"interface,omitempty"`
}

// ResourceID returns unique identifier for endpoint ports
func (e EndpointPort) ResourceID() string {
	return fmt.Sprintf("endpoint:%s", e.URL)
}

// IsExclusive returns false as multiple components can consume the same endpoint
func (e EndpointPort) IsExclusive() bool {
	return false
}

// Type returns the port type identifier
func (e EndpointPort) Type() string {
	return "endpoint"
}

package message

import "encoding/json"

// Payload represents the data carried by a message.
// All message payloads must implement this interface to provide
// schema information, validation, and serialization capabilities.
//
// Example implementation:
//
//	type OrderPayload struct {
//	    OrderID   string    `json:"order_id"`
//	    Amount    float64   `json:"amount"`
//	    Currency  string    `json:"currency"`
//	    Timestamp time.Time `json:"timestamp"`
//	}
//
//	func (p *OrderPayload) Schema() Type {
//	    return Type{Domain: "finance", Category: "order", Version: "v1"}
//	}
//
//	func (p *OrderPayload) Validate() error {
//	    if p.OrderID == "" {
//	        return errors.New("order ID is required")
//	    }
//	    if p.Amount < 0 {
//	        return errors.New("amount cannot be negative")
//	    }
//	    return nil
//	}
//
//	func (p *OrderPayload) MarshalJSON() ([]byte, error) {
//	    // Use alias to avoid infinite recursion
//	    type Alias OrderPayload
//	    return json.Marshal((*Alias)(p))
//	}
//
//	func (p *OrderPayload) UnmarshalJSON(data []byte) error {
//	    // Use alias to avoid infinite recursion
//	    type Alias OrderPayload
//	    return json.Unmarshal(data, (*Alias)(p))
//	}
type Payload interface {
	// Schema returns the Type that defines this payload's structure.
	// This enables type-safe routing and processing throughout the system.
	Schema() Type

	// Validate checks the payload data for correctness.
	// Returns nil if valid, or an error describing the validation failure.
	// Should validate:
	//   - Required fields are present
	//   - Values are within acceptable ranges
	//   - Business rules are satisfied
	Validate() error

	// JSON serialization using standard Go interfaces.
	// Payloads must implement json.Marshaler and json.Unmarshaler
	// for deterministic serialization. The same payload must always
	// produce the same JSON output.
	json.Marshaler
	json.Unmarshaler
}

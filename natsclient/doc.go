// Package natsclient provides a robust NATS client with circuit breaker protection,
// automatic reconnection, and JetStream/KV support for the etlstreams pipeline.
//
// The natsclient package wraps the standard NATS Go client with additional reliability
// features including a circuit breaker for failure protection, exponential backoff for
// reconnection, and context propagation throughout all operations. Every record that
// moves between an ingestor, the stream processor, and the warehouse rides on this
// client.
//
// # Core Features
//
// Circuit Breaker Pattern: Prevents cascading failures by failing fast after a threshold
// of consecutive failures (default: 5). The circuit opens to block further attempts,
// then gradually tests the connection with exponential backoff.
//
// Connection Lifecycle Management: Handles connection states automatically through the
// lifecycle: Disconnected → Connecting → Connected → Reconnecting → Connected. The client
// manages all transitions with configurable callbacks for state changes.
//
// JetStream Support: Streams, consumers, and Key-Value buckets with circuit breaker
// integration. The warehouse KV bucket and the enrichment lookup bucket are both
// created through this client.
//
// KVStore Abstraction: High-level wrapper over NATS KV providing automatic CAS
// (Compare-And-Swap) retry, JSON helpers, and consistent error handling for
// contended writes.
//
// # Basic Usage
//
// Creating and connecting:
//
//	client, err := natsclient.NewClient("nats://localhost:4222")
//	if err != nil {
//	    return err
//	}
//
//	ctx := context.Background()
//	err = client.Connect(ctx)
//	if err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	// Publish a raw record
//	err = client.Publish(ctx, "etl.raw.records", recordJSON)
//
//	// Subscribe to the raw record stream
//	err = client.Subscribe(ctx, "etl.raw.records", func(msgCtx context.Context, data []byte) {
//	    // Handle record with context (30s timeout per message)
//	})
//
// # Advanced Configuration
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithMaxReconnects(-1),  // Infinite reconnects
//	    natsclient.WithReconnectWait(2*time.Second),
//	    natsclient.WithCircuitBreakerThreshold(10),
//	    natsclient.WithDisconnectCallback(func(err error) {
//	        log.Printf("Disconnected: %v", err)
//	    }),
//	    natsclient.WithReconnectCallback(func() {
//	        log.Println("Reconnected successfully")
//	    }),
//	)
//
// # Key-Value Store
//
// The warehouse stores processed records in a KV bucket; enrichment reference
// data lives in another. Both use the same helpers:
//
//	bucket, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{
//	    Bucket:  "etl-warehouse",
//	    History: 5,
//	})
//
//	kvStore := client.NewKVStore(bucket)
//
//	// Atomic JSON update with automatic CAS retry
//	err = kvStore.UpdateJSON(ctx, "order-1042", func(doc map[string]any) error {
//	    // May be called multiple times on conflict
//	    doc["status"] = "loaded"
//	    return nil
//	})
//
// Historical queries resolve what a key held at a point in time, backed by KV
// history and a TTL cache:
//
//	resolver := natsclient.NewTemporalResolver(ctx, bucket)
//	entry, err := resolver.GetAtTimestamp(ctx, "order-1042", cutoff)
//
// # Circuit Breaker Pattern
//
//	err := client.Connect(ctx)
//	if errors.Is(err, natsclient.ErrCircuitOpen) {
//	    // Circuit is open, wait for it to test recovery
//	    time.Sleep(client.Backoff())
//	}
//
// Circuit breaker configuration:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithCircuitBreakerThreshold(5),  // Open after 5 failures
//	    natsclient.WithMaxBackoff(time.Minute),     // Max backoff duration
//	)
//
// # Connection Status and Health
//
//	status := client.Status()
//	switch status {
//	case natsclient.StatusConnected:
//	    // Healthy and ready
//	case natsclient.StatusReconnecting:
//	    // Temporarily disconnected, reconnecting
//	case natsclient.StatusCircuitOpen:
//	    // Circuit breaker is open
//	case natsclient.StatusDisconnected:
//	    // Not connected
//	}
//
//	// Wait for connection
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	err := client.WaitForConnection(ctx)
//
// Health monitoring with callbacks:
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithHealthInterval(10*time.Second),
//	    natsclient.WithHealthChangeCallback(func(healthy bool) {
//	        if !healthy {
//	            log.Println("Connection lost")
//	        }
//	    }),
//	)
//
// # Error Handling
//
// The package defines sentinel errors for connection failures:
//
//	err := client.Publish(ctx, "etl.raw.records", data)
//	if errors.Is(err, natsclient.ErrCircuitOpen) {
//	    // Back off and retry later
//	}
//	if errors.Is(err, natsclient.ErrNotConnected) {
//	    // Trigger reconnection
//	}
//
// KV-specific error handling:
//
//	err := kvStore.UpdateJSON(ctx, key, updateFn)
//	if natsclient.IsKVNotFoundError(err) {
//	    // Key doesn't exist
//	}
//	if natsclient.IsKVConflictError(err) {
//	    // Too many concurrent updates
//	}
//
// # Connection Options
//
//	WithMaxReconnects(n int)              // Maximum reconnection attempts (-1 = infinite)
//	WithReconnectWait(d time.Duration)    // Wait between reconnection attempts
//	WithTimeout(d time.Duration)          // Connection timeout
//	WithDrainTimeout(d time.Duration)     // Timeout for graceful shutdown
//	WithPingInterval(d time.Duration)     // Protocol ping interval
//	WithHealthInterval(d time.Duration)   // Health monitoring interval (0 disables)
//	WithCircuitBreakerThreshold(n int32)  // Failures before circuit opens
//	WithMaxBackoff(d time.Duration)       // Maximum backoff duration
//	WithLogger(logger Logger)             // Custom logger for debug output
//	WithName(name string)                 // Client identification
//	WithMetrics(registry)                 // JetStream metrics collection
//
// # Authentication and Security
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithCredentials("username", "password"),
//	)
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithToken("auth-token"),
//	)
//
//	client, err := natsclient.NewClient(url,
//	    natsclient.WithTLS("client.crt", "client.key", "ca.crt"),
//	)
//
// Credentials are cleared from memory when the client is closed.
//
// # Testing
//
// The package provides testcontainers-based helpers for integration testing
// against a real NATS server:
//
//	func TestWarehouseStore(t *testing.T) {
//	    tc := natsclient.NewTestClient(t,
//	        natsclient.WithKVBuckets("etl-warehouse"),
//	    )
//
//	    err := tc.Client.Publish(ctx, "etl.raw.records", []byte(`{"id":"r1"}`))
//	    assert.NoError(t, err)
//	}
//
// # Thread Safety
//
// The Client type is safe for concurrent use from multiple goroutines:
//   - Connection state is managed with atomic operations and mutexes
//   - Subscriptions and consumers can be created from any goroutine
//   - Close() can only be called once (subsequent calls are no-ops)
//
// # Architecture Integration
//
// Within etlstreams:
//
//   - ingest: ingestors publish raw records to etl.raw.records
//   - processor/stream: subscribes to raw records, publishes processed ones
//   - warehouse: KVStore persistence for processed records
//   - engine: owns the shared client lifecycle and hands it to components
//
// Data flow:
//
//	Component → Client → Circuit Breaker → NATS Connection → NATS Server
package natsclient

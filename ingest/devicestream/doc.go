// Package devicestream provides a streaming WebSocket ingestor for the
// ETLStreams platform.
//
// # Overview
//
// The device-stream ingestor connects to a device feed over WebSocket and
// bridges its frames onto the raw record subject. A frame is JSON carrying
// one record or a batch of records. Read and publish are decoupled by a
// fixed-size ring buffer: the read loop decodes frames into the ring, the
// publish loop drains it in arrival order. When the feed outruns publishing
// the oldest frames are dropped rather than stalling the connection, and
// drops are counted.
//
// Connections are retried with exponential backoff up to the configured
// attempt limit; a successful connection resets the count.
//
// # Quick Start
//
//	config := devicestream.Config{
//	    URL:        "wss://sensors.example.com/feed",
//	    BufferSize: 2048,
//	}
//
//	rawConfig, _ := json.Marshal(config)
//	ing, err := devicestream.New(rawConfig, deps)
//	// ... Initialize, Start ...
//
// # Coordinator Passes
//
// Unlike the batch ingestors, a coordinator-driven Ingest does not fetch
// anything: the stream is already flowing. It synchronously flushes the
// frames buffered at the moment of the call, bounded so a live feed cannot
// keep the pass running forever.
package devicestream

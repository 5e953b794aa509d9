package flowgraph

import (
	"testing"

	"github.com/c360/etlstreams/component"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFlowGraphPatterns tests all connection pattern implementations
func TestFlowGraphPatterns(t *testing.T) {
	t.Run("nil checks in AddComponentNode", func(t *testing.T) {
		graph := NewFlowGraph()

		// Test nil component
		err := graph.AddComponentNode("test", nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "component cannot be nil")

		// Test empty name
		mockComp := createPatternTestComponent("mock", []component.Port{}, []component.Port{})
		err = graph.AddComponentNode("", mockComp)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "component name cannot be empty")
	})

	t.Run("Request pattern connects bidirectionally", func(t *testing.T) {
		graph := NewFlowGraph()

		// Create components with request ports on same subject
		clientPorts := []component.Port{
			{
				Name:      "warehouse_query",
				Direction: component.DirectionOutput,
				Config:    component.NATSRequestPort{Subject: "warehouse.query"},
			},
		}
		serverPorts := []component.Port{
			{
				Name:      "query_handler",
				Direction: component.DirectionInput,
				Config:    component.NATSRequestPort{Subject: "warehouse.query"},
			},
		}

		client := createPatternTestComponent("reporting-client", []component.Port{}, clientPorts)
		server := createPatternTestComponent("warehouse", serverPorts, []component.Port{})

		require.NoError(t, graph.AddComponentNode("reporting-client", client))
		require.NoError(t, graph.AddComponentNode("warehouse", server))

		// Connect by patterns
		err := graph.ConnectComponentsByPatterns()
		assert.NoError(t, err)

		// Check that bidirectional edge was created
		edges := graph.GetEdges()
		assert.Len(t, edges, 1, "Should have one edge for bidirectional request")
		if len(edges) > 0 {
			edge := edges[0]
			assert.Equal(t, PatternRequest, edge.Pattern)
			assert.Equal(t, "warehouse.query", edge.ConnectionID)
			// Should connect the two components
			assert.True(t,
				(edge.From.ComponentName == "reporting-client" && edge.To.ComponentName == "warehouse") ||
					(edge.From.ComponentName == "warehouse" && edge.To.ComponentName == "reporting-client"),
				"Edge should connect client and server bidirectionally")
		}
	})

	t.Run("Watch pattern connects and warns on multiple writers", func(t *testing.T) {
		graph := NewFlowGraph()

		// Create two writers to same KV bucket
		writer1Ports := []component.Port{
			{
				Name:      "lookup_writer",
				Direction: component.DirectionOutput,
				Config:    component.KVWatchPort{Bucket: "etl-lookups"},
			},
		}
		writer2Ports := []component.Port{
			{
				Name:      "lookup_writer2",
				Direction: component.DirectionOutput,
				Config:    component.KVWatchPort{Bucket: "etl-lookups"},
			},
		}
		watcherPorts := []component.Port{
			{
				Name:      "lookup_watcher",
				Direction: component.DirectionInput,
				Config:    component.KVWatchPort{Bucket: "etl-lookups"},
			},
		}

		writer1 := createPatternTestComponent("loader1", []component.Port{}, writer1Ports)
		writer2 := createPatternTestComponent("loader2", []component.Port{}, writer2Ports)
		watcher := createPatternTestComponent("stream-processor", watcherPorts, []component.Port{})

		require.NoError(t, graph.AddComponentNode("loader1", writer1))
		require.NoError(t, graph.AddComponentNode("loader2", writer2))
		require.NoError(t, graph.AddComponentNode("stream-processor", watcher))

		// Connect by patterns - should get warning about multiple writers
		err := graph.ConnectComponentsByPatterns()
		assert.Error(t, err, "Should warn about multiple writers")
		if err != nil {
			assert.Contains(t, err.Error(), "Multiple writers to KV bucket")
		}

		// But edges should still be created
		edges := graph.GetEdges()
		assert.Len(t, edges, 2, "Should have edges from both writers to watcher")
		for _, edge := range edges {
			assert.Equal(t, PatternWatch, edge.Pattern)
			assert.Equal(t, "etl-lookups", edge.ConnectionID)
		}
	})

	t.Run("Network pattern detects port conflicts", func(t *testing.T) {
		graph := NewFlowGraph()

		// Create two components trying to bind to same network port
		server1Ports := []component.Port{
			{
				Name:      "http_server",
				Direction: component.DirectionInput,
				Config:    component.NetworkPort{Protocol: "tcp", Host: "0.0.0.0", Port: 8080},
			},
		}
		server2Ports := []component.Port{
			{
				Name:      "http_server2",
				Direction: component.DirectionInput,
				Config:    component.NetworkPort{Protocol: "tcp", Host: "0.0.0.0", Port: 8080},
			},
		}

		server1 := createPatternTestComponent("server1", server1Ports, []component.Port{})
		server2 := createPatternTestComponent("server2", server2Ports, []component.Port{})

		require.NoError(t, graph.AddComponentNode("server1", server1))
		require.NoError(t, graph.AddComponentNode("server2", server2))

		// Connect by patterns - should detect conflict
		err := graph.ConnectComponentsByPatterns()
		assert.Error(t, err, "Should detect network port conflict")
		if err != nil {
			assert.Contains(t, err.Error(), "Network port conflict")
			assert.Contains(t, err.Error(), "tcp:0.0.0.0:8080")
		}

		// No edges should be created for network ports
		edges := graph.GetEdges()
		for _, edge := range edges {
			assert.NotEqual(t, PatternNetwork, edge.Pattern, "Network ports don't create edges")
		}
	})

	t.Run("Endpoint pattern allows shared URLs", func(t *testing.T) {
		graph := NewFlowGraph()

		// Two ingestors polling the same upstream endpoint is legal:
		// endpoint ports are outbound client connections, not binds
		poller1Ports := []component.Port{
			{
				Name:      "endpoint",
				Direction: component.DirectionInput,
				Config:    component.EndpointPort{Scheme: "https", URL: "https://api.example.com/orders"},
			},
		}
		poller2Ports := []component.Port{
			{
				Name:      "endpoint",
				Direction: component.DirectionInput,
				Config:    component.EndpointPort{Scheme: "https", URL: "https://api.example.com/orders"},
			},
		}

		poller1 := createPatternTestComponent("api-poller-1", poller1Ports, []component.Port{})
		poller2 := createPatternTestComponent("api-poller-2", poller2Ports, []component.Port{})

		require.NoError(t, graph.AddComponentNode("api-poller-1", poller1))
		require.NoError(t, graph.AddComponentNode("api-poller-2", poller2))

		// Connect by patterns - no conflict for shared endpoint URLs
		err := graph.ConnectComponentsByPatterns()
		assert.NoError(t, err, "Shared endpoint URLs should not conflict")

		// Endpoint ports are external boundaries and create no edges
		edges := graph.GetEdges()
		assert.Empty(t, edges, "Endpoint ports don't create edges")
	})

	t.Run("Stream pattern still works", func(t *testing.T) {
		graph := NewFlowGraph()

		// Traditional NATS pub/sub
		pubPorts := []component.Port{
			{
				Name:      "records",
				Direction: component.DirectionOutput,
				Config:    component.NATSPort{Subject: "etl.raw.records"},
			},
		}
		subPorts := []component.Port{
			{
				Name:      "records",
				Direction: component.DirectionInput,
				Config:    component.NATSPort{Subject: "etl.raw.records"},
			},
		}

		pub := createPatternTestComponent("publisher", []component.Port{}, pubPorts)
		sub := createPatternTestComponent("subscriber", subPorts, []component.Port{})

		require.NoError(t, graph.AddComponentNode("publisher", pub))
		require.NoError(t, graph.AddComponentNode("subscriber", sub))

		// Connect by patterns
		err := graph.ConnectComponentsByPatterns()
		assert.NoError(t, err)

		// Check edge
		edges := graph.GetEdges()
		assert.Len(t, edges, 1)
		if len(edges) > 0 {
			edge := edges[0]
			assert.Equal(t, PatternStream, edge.Pattern)
			assert.Equal(t, "etl.raw.records", edge.ConnectionID)
			assert.Equal(t, "publisher", edge.From.ComponentName)
			assert.Equal(t, "subscriber", edge.To.ComponentName)
		}
	})

	t.Run("KVWritePort to KVWatchPort connections work correctly", func(t *testing.T) {
		graph := NewFlowGraph()

		// Create stream processor (writer) using KVWritePort
		writerPorts := []component.Port{
			{
				Name:      "warehouse",
				Direction: component.DirectionOutput,
				Config: component.KVWritePort{
					Bucket: "etl-warehouse",
					Interface: &component.InterfaceContract{
						Type:    "pipeline.Record",
						Version: "v1",
					},
				},
			},
		}

		// Create export component (watcher) using KVWatchPort
		watcherPorts := []component.Port{
			{
				Name:      "warehouse",
				Direction: component.DirectionInput,
				Config: component.KVWatchPort{
					Bucket: "etl-warehouse",
					Keys:   []string{},
				},
			},
		}

		writer := createPatternTestComponent("stream-processor", []component.Port{}, writerPorts)
		watcher := createPatternTestComponent("warehouse-export", watcherPorts, []component.Port{})

		require.NoError(t, graph.AddComponentNode("stream-processor", writer))
		require.NoError(t, graph.AddComponentNode("warehouse-export", watcher))

		// Connect by patterns - should work without warnings
		err := graph.ConnectComponentsByPatterns()
		assert.NoError(t, err, "KVWritePort -> KVWatchPort should connect cleanly")

		// Check that edge was created correctly
		edges := graph.GetEdges()
		assert.Len(t, edges, 1, "Should have one edge from writer to watcher")
		if len(edges) > 0 {
			edge := edges[0]
			assert.Equal(t, PatternWatch, edge.Pattern)
			assert.Equal(t, "etl-warehouse", edge.ConnectionID)
			assert.Equal(t, "stream-processor", edge.From.ComponentName)
			assert.Equal(t, "warehouse-export", edge.To.ComponentName)
		}
	})

	t.Run("extractConnectionID handles nil and missing data", func(t *testing.T) {
		graph := NewFlowGraph()

		// Test nil config
		result := graph.extractConnectionID(nil)
		assert.Equal(t, "nil_port_config", result)

		// Test empty NATS subject
		result = graph.extractConnectionID(component.NATSPort{Subject: ""})
		assert.Equal(t, "nats_missing_subject", result)

		// Test empty KV bucket for watch
		result = graph.extractConnectionID(component.KVWatchPort{Bucket: ""})
		assert.Equal(t, "kv_missing_bucket", result)

		// Test empty KV bucket for write
		result = graph.extractConnectionID(component.KVWritePort{Bucket: ""})
		assert.Equal(t, "kv_missing_bucket", result)

		// Test incomplete network port
		result = graph.extractConnectionID(component.NetworkPort{Protocol: "tcp", Host: "", Port: 0})
		assert.Contains(t, result, "network_incomplete")

		// Test endpoint port without URL
		result = graph.extractConnectionID(component.EndpointPort{Scheme: "https", URL: ""})
		assert.Equal(t, "endpoint_missing_url", result)
	})

	t.Run("NATS wildcard pattern matching", func(t *testing.T) {
		// Test exact match
		assert.True(t, matchNATSPattern("foo.bar", "foo.bar"), "Exact match should work")

		// Test single token wildcard (*)
		assert.True(t, matchNATSPattern("etl.raw.records", "etl.*.records"), "* should match single token")
		assert.True(t, matchNATSPattern("foo.bar.baz", "foo.*.baz"), "* should match middle token")
		assert.True(t, matchNATSPattern("foo.bar", "*.bar"), "* should match first token")
		assert.True(t, matchNATSPattern("foo.bar", "foo.*"), "* should match last token")

		// Test multi-token wildcard (>)
		assert.True(t, matchNATSPattern("foo.bar.baz.qux", "foo.>"), "> should match multiple tokens")
		assert.True(t, matchNATSPattern("foo", "foo.>"), "> should match zero tokens")

		// Test non-matches
		assert.False(t, matchNATSPattern("foo.bar.baz", "foo.*.qux"), "* shouldn't match wrong token")
		assert.False(t, matchNATSPattern("foo.bar.baz", "foo.*"), "* requires exact token count")
		assert.False(t, matchNATSPattern("foo", "foo.bar"), "No match with more pattern tokens")

		// Test bidirectional matching (pattern in either position)
		assert.True(
			t,
			matchNATSPattern("etl.*.records", "etl.raw.records"),
			"Pattern should match concrete subject",
		)
	})

	t.Run("Stream pattern with wildcard connections", func(t *testing.T) {
		graph := NewFlowGraph()

		// CSV ingestor publishes to concrete subject
		pubPorts := []component.Port{
			{
				Name:      "output",
				Direction: component.DirectionOutput,
				Config:    component.NATSPort{Subject: "etl.raw.records"},
			},
		}

		// Audit component subscribes with wildcard
		subPorts := []component.Port{
			{
				Name:      "input",
				Direction: component.DirectionInput,
				Config:    component.NATSPort{Subject: "etl.*.records"},
			},
		}

		pub := createPatternTestComponent("csv-ingestor", []component.Port{}, pubPorts)
		sub := createPatternTestComponent("audit-logger", subPorts, []component.Port{})

		require.NoError(t, graph.AddComponentNode("csv-ingestor", pub))
		require.NoError(t, graph.AddComponentNode("audit-logger", sub))

		// Connect by patterns
		err := graph.ConnectComponentsByPatterns()
		assert.NoError(t, err)

		// Check that wildcard match created edge
		edges := graph.GetEdges()
		assert.Len(t, edges, 1, "Wildcard pattern should match concrete subject")
		if len(edges) > 0 {
			edge := edges[0]
			assert.Equal(t, PatternStream, edge.Pattern)
			assert.Equal(t, "etl.raw.records", edge.ConnectionID, "Should use concrete subject, not pattern")
			assert.Equal(t, "csv-ingestor", edge.From.ComponentName)
			assert.Equal(t, "audit-logger", edge.To.ComponentName)
		}
	})
}

// Helper function to create mock components for pattern tests
func createPatternTestComponent(name string, inputs []component.Port, outputs []component.Port) component.Discoverable {
	return &mockFlowGraphComponent{
		metadata: component.Metadata{
			Name: name,
		},
		inputPorts:  inputs,
		outputPorts: outputs,
	}
}

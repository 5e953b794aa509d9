// Package scrape provides a web scrape ingestor for the ETLStreams platform.
//
// # Overview
//
// The scrape ingestor fetches configured pages, extracts tabular records from
// them, and publishes the records to the raw record subject keyed by the page
// URL. Two fetch modes are supported: static, a plain HTTP GET whose body is
// decoded as JSON or parsed for its first HTML table, and rendered, which
// drives a headless browser session so client-side JavaScript runs before an
// extraction script pulls rows off the page.
//
// Targets run as tasks on a bounded worker pool, so concurrent fetches, and
// in particular browser sessions, are capped regardless of how many targets a
// pass covers. The browser allocator is shared across sessions and lives from
// Start to Stop; it is only created when a rendered target is configured.
//
// # Quick Start
//
//	config := scrape.Config{
//	    Targets: []scrape.TargetConfig{
//	        {Name: "prices", URL: "https://example.com/prices", Format: "table"},
//	        {Name: "board", URL: "https://example.com/app", Mode: "rendered", Selector: "#grid"},
//	    },
//	    MaxConcurrent: 2,
//	}
//
//	rawConfig, _ := json.Marshal(config)
//	ing, err := scrape.New(rawConfig, deps)
//	// ... Initialize, Start ...
//	count, err := ing.(*scrape.Ingestor).Ingest(ctx, ingest.Config{})
//
// # Failure Isolation
//
// In a configured pass each target fails independently: a fetch or extraction
// error is counted and logged and the remaining targets still run. An ad hoc
// pass against a single URL returns that target's error directly.
package scrape

// Package errors provides standardized error handling patterns for ETLStreams components.
//
// # Overview
//
// The errors package implements a three-class error classification system for
// streaming ETL pipelines: Transient (temporary, retryable), Invalid (bad input,
// non-retryable), and Fatal (unrecoverable, stop processing).
//
// Classification lets components make informed decisions about retries, graceful
// degradation, and failure recovery without hardcoded error string matching. A
// transient NATS publish failure can be retried; a record that fails schema
// validation never should be.
//
// # Quick Start
//
// Return standard error variables for known conditions:
//
//	if client == nil {
//	    return errors.ErrNoConnection
//	}
//
// Wrap errors with component context using the standard format
// "component.method: action failed: %w":
//
//	if err := store.LoadRecord(ctx, record); err != nil {
//	    return errors.WrapTransient(err, "StreamProcessor", "processRecord", "warehouse load")
//	}
//
// Make retry decisions based on classification:
//
//	if err := publish(record); err != nil {
//	    if errors.IsTransient(err) {
//	        // retry with backoff
//	    } else {
//	        // count the failure and move to the next record
//	    }
//	}
//
// # Integration
//
// ClassifiedError supports errors.Is and errors.As, so taxonomy sentinels wrapped
// inside a classified error remain matchable by callers. RetryConfig bridges to
// the pkg/retry package via ToRetryConfig for components that need full
// exponential backoff behavior.
package errors

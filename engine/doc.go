// Package engine manages the runtime lifecycle of all configured components.
//
// # Overview
//
// The engine sits between configuration and the component framework. It
// takes a map of component configs (instance name to factory, type and raw
// config), creates every enabled instance through the component registry,
// runs Initialize on each, then starts them in deterministic order. Shutdown
// reverses the recorded start order so downstream consumers stop before the
// ingestors feeding them go away.
//
//	engine.New(registry, cfg.Components, deps)
//	eng.Initialize()          // create + initialize enabled components
//	eng.Start(ctx)            // start in instance-name order, record order
//	eng.Stop(30 * time.Second) // reverse order, per-component timeout
//
// # Failure policy
//
// One broken config entry must not keep the platform down. Create and start
// failures are logged, the instance is marked failed, and the engine moves
// on. Operators who want hard guarantees run Validator first: it checks
// every entry against the registry (factory exists, type matches, config
// passes the declared schema) and returns the complete issue list, which is
// what the binary's validate-only mode prints.
//
// # Observability
//
// Status returns lifecycle state, health and flow metrics for every managed
// instance. ComponentHealth probes Health() on all components in parallel
// with a bounded errgroup so one wedged component cannot stall the poll.
// Engine metrics (creates, starts, stops, durations, running gauge) register
// under the etlstreams_engine Prometheus subsystem when a registry is wired.
package engine

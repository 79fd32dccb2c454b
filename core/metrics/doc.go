// Package metrics defines the sinks that observe planning runs. A sink records
// each generated plan and each historical month fetch. Implementations such as
// PromSink and InfluxSink live in infra/metrics and register themselves with
// the factory so that configuration can select them by name; several
// configured sinks are combined into a MultiSink.
package metrics

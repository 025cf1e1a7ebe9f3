// Package monitor implements the per-user remote resource monitoring core.
//
// For each monitored user a sample loop periodically collects CPU, RAM and
// disk utilization from the user's target host over a pooled remote
// connection, feeds the sample through a debouncing alert engine, and hands
// the resulting alert batches to a Notifier.
//
// # Key Components
//
//	Supervisor         - Owns one sample loop per user; Start/Stop/IsMonitoring
//	Collector          - Turns a pooled connection into a normalized Sample
//	Pool               - Keeps at most one warm connection per user, with liveness probes
//	Cache              - Short-TTL memoization of the last Sample per user
//	IntervalController - Maps load to the next polling delay
//	AlertEngine        - Per-resource hysteresis with spike rejection and cooldown
//
// # Loop Flow
//
//  1. Collector checks the Cache, otherwise acquires a connection from the Pool
//  2. The three metric commands run concurrently; a failed metric reads as 0
//  3. AlertEngine turns the Sample into Raised/Resolved events
//  4. Events are batched (one critical, one resolved) and sent to the Notifier
//  5. IntervalController picks the sleep; cancellation is observed while sleeping
//
// A collection failure ends the user's session: the user is told once that
// monitoring stopped and must start it again explicitly.
//
// # Platforms
//
// The OS family is detected once per connection and cached on the pooled
// entry as a MetricCommandSet (Linux, macOS or Windows).
package monitor

// Package types defines the core data structures shared by the benchgrid
// services.
//
// This package contains the fundamental types used by the scheduler, the
// worker and the event logger, including:
//   - Task types, parameter bags and queue pop policies
//   - Lifecycle events and reconstructed task instances
//   - Node registry entries
//   - Status and aggregation payloads served by the read-only APIs
package types

// Package services defines shared utilities consumed by the pipeline stages
// and external tool clients.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers and stage names for logging
//     and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation vs external tool) and preserve the invoked tool's process
//     exit status so the driver can propagate it verbatim.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, exit codes) stays uniform across the
// pipeline.
package services

// Package pipeline drives the two-step dataset cleaning flow: transcribe the
// input manifest with an external speech model, then feed the
// transcript-augmented manifest to the external metrics-and-filter tool.
//
// The driver owns validation of required inputs, derivation of the filtered
// manifest path, sequential invocation with strict transcription-before-
// filtering ordering, and failure propagation: a non-zero exit from either
// tool aborts the run immediately with that tool's exit status and no
// cleanup of partial results.
package pipeline

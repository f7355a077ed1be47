// Package metricsfilter wraps the external metrics-and-filter tool
// (get_metrics_and_filter.py). The tool reads a transcript-augmented
// manifest, computes CER/WER/edge-CER/length-ratio metrics per record,
// writes a filtered manifest, and prints the computed metrics.
package metricsfilter

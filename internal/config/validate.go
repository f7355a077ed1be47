package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateFilter(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.BatchSize <= 0 {
		return errors.New("transcription.batch_size must be positive")
	}
	if c.Transcription.NumJobs == 0 {
		return errors.New("transcription.num_jobs must be non-zero (negative means all CPUs but N-1)")
	}
	return nil
}

func (c *Config) validateFilter() error {
	thresholds := map[string]float64{
		"filter.max_cer":      c.Filter.MaxCER,
		"filter.max_wer":      c.Filter.MaxWER,
		"filter.max_edge_cer": c.Filter.MaxEdgeCER,
	}
	for key, value := range thresholds {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	if c.Filter.MaxLenDiffRatio <= 0 {
		return errors.New("filter.max_len_diff_ratio must be positive")
	}
	return nil
}

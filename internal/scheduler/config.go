package scheduler

import "time"

// Config holds the cron expressions and the per-job execution timeout. Specs
// are evaluated in the orchestrator's configured timezone.
type Config struct {
	BillingSpec      string
	ContributionSpec string
	FineSpec         string
	RecoverySpec     string
	JobTimeout       time.Duration
}

func DefaultConfig() Config {
	return Config{
		BillingSpec:      "0 2 1 * *",
		ContributionSpec: "0 3 1 * *",
		FineSpec:         "0 4 * * *",
		RecoverySpec:     "*/5 * * * *",
		JobTimeout:       10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BillingSpec == "" {
		c.BillingSpec = defaults.BillingSpec
	}
	if c.ContributionSpec == "" {
		c.ContributionSpec = defaults.ContributionSpec
	}
	if c.FineSpec == "" {
		c.FineSpec = defaults.FineSpec
	}
	if c.RecoverySpec == "" {
		c.RecoverySpec = defaults.RecoverySpec
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

// Package scheduler computes retry schedules from configurable backoff
// mappings and tracks retry tasks in the process tracker.
package scheduler

import (
	"time"
)

// RetryMapping is the configured backoff shape for one connector or
// connector+merchant pair. Frequencies are per-step delays in seconds; a
// retry count past the last entry reuses the final delay until MaxCount.
type RetryMapping struct {
	MaxCount    int   `json:"max_count"`
	Frequencies []int `json:"frequencies"`
}

func defaultRetryMapping() RetryMapping {
	return RetryMapping{
		MaxCount:    5,
		Frequencies: []int{60, 120, 300, 600, 1800},
	}
}

// Delay returns the wait before retry number retryCount (zero based), or
// false once the budget is exhausted.
func (m RetryMapping) Delay(retryCount int) (time.Duration, bool) {
	if retryCount >= m.MaxCount || len(m.Frequencies) == 0 {
		return 0, false
	}
	idx := retryCount
	if idx >= len(m.Frequencies) {
		idx = len(m.Frequencies) - 1
	}
	return time.Duration(m.Frequencies[idx]) * time.Second, true
}

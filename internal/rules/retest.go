package rules

import (
	"time"

	"github.com/voyagen/streamplus/internal/models"
)

// NeedsTest decides whether a stream must be probed before matching or
// scoring. Pure decision function; the probe itself is the caller's job.
//
//   - testing disabled: never test
//   - no cached stats: always test
//   - stats present, no forced retest: cached stats are authoritative
//     regardless of age
//   - forced retest: test only when the stats are older than the
//     configured threshold
func NeedsTest(stream *models.Stream, opts models.TestOptions, now time.Time) bool {
	if !opts.TestStreams {
		return false
	}
	if stream.Stats == nil {
		return true
	}
	if !opts.ForceRetest {
		return false
	}
	threshold := time.Duration(opts.RetestDaysThreshold) * 24 * time.Hour
	return stream.Stats.Age(now) > threshold
}

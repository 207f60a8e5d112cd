package supervisor

import (
	"sync"
	"time"
)

// restartStatistics tracks recent restart timestamps for one actor so a
// Strategy can tell a restart storm from an isolated fault (SPEC_FULL §3,
// grounded in protoactor-go's actorContextExtras.restartStats()). Entries
// older than the strategy's Within window are trimmed on every read.
type restartStatistics struct {
	mu    sync.Mutex
	times []time.Time
}

// recordAndCount appends now and returns how many timestamps remain within
// the trailing `within` window, including the one just added. wasQuiet
// reports whether the window held no timestamps before this one, i.e. the
// restart-intensity window had gone quiet (used to reset a Strategy's
// Backoff).
func (r *restartStatistics) recordAndCount(now time.Time, within time.Duration) (count int, wasQuiet bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if within > 0 {
		cut := now.Add(-within)
		i := 0
		for i < len(r.times) && r.times[i].Before(cut) {
			i++
		}
		r.times = r.times[i:]
	}
	wasQuiet = len(r.times) == 0
	r.times = append(r.times, now)
	return len(r.times), wasQuiet
}

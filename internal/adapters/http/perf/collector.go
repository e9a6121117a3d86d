package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 4096

// EntryKind distinguishes what was timed.
type EntryKind uint8

const (
	KindRequest EntryKind = iota // inbound browser request
	KindBackend                  // outbound call to the activity backend
	KindQuery                    // session store query
)

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Kind       EntryKind
	Path       string // "GET /", "POST /activities/{name}/signup" or "QueryContext"
	StatusCode int    // HTTP status; 0 for queries and transport failures
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// When full, the oldest entries are overwritten. Aggregation happens only in Snapshot.
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64
}

// NewCollector creates a collector with the given ring buffer capacity.
// PRE: size > 0 (non-positive sizes fall back to DefaultRingSize)
// POST: Returns a ready-to-use collector with pre-allocated storage
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// PRE: e is a valid Entry
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRecorded  int64
	RequestP50Ms   float64
	RequestP95Ms   float64
	BackendP50Ms   float64
	BackendP95Ms   float64
	BackendErrors  int
	SlowestPaths   []PathStat
	SlowestBackend []PathStat
	SlowestQueries []PathStat
}

// PathStat aggregates timing for a single path or query op.
type PathStat struct {
	Path    string
	AvgMs   float64
	MaxMs   float64
	Count   int
	TotalMs float64
}

// Snapshot computes aggregated stats for entries recorded at or after since.
// PRE: topN >= 0
// POST: Returns percentiles per kind and the topN slowest paths per kind
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Entry, c.size)
	copy(buf, c.entries)
	c.mu.Unlock()

	var requestDurations, backendDurations []float64
	stats := map[EntryKind]map[string]*PathStat{
		KindRequest: {},
		KindBackend: {},
		KindQuery:   {},
	}
	backendErrors := 0

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		switch e.Kind {
		case KindRequest:
			requestDurations = append(requestDurations, e.DurationMs)
		case KindBackend:
			backendDurations = append(backendDurations, e.DurationMs)
			if e.StatusCode == 0 || e.StatusCode >= 500 {
				backendErrors++
			}
		}
		accumulate(stats[e.Kind], e)
	}

	snap := Snapshot{
		TotalRecorded:  c.TotalRecorded(),
		BackendErrors:  backendErrors,
		SlowestPaths:   topByAvg(stats[KindRequest], topN),
		SlowestBackend: topByAvg(stats[KindBackend], topN),
		SlowestQueries: topByAvg(stats[KindQuery], topN),
	}
	if len(requestDurations) > 0 {
		sort.Float64s(requestDurations)
		snap.RequestP50Ms = percentile(requestDurations, 50)
		snap.RequestP95Ms = percentile(requestDurations, 95)
	}
	if len(backendDurations) > 0 {
		sort.Float64s(backendDurations)
		snap.BackendP50Ms = percentile(backendDurations, 50)
		snap.BackendP95Ms = percentile(backendDurations, 95)
	}
	return snap
}

func accumulate(byPath map[string]*PathStat, e Entry) {
	if byPath == nil {
		return
	}
	s, ok := byPath[e.Path]
	if !ok {
		s = &PathStat{Path: e.Path}
		byPath[e.Path] = s
	}
	s.Count++
	s.TotalMs += e.DurationMs
	s.AvgMs = s.TotalMs / float64(s.Count)
	if e.DurationMs > s.MaxMs {
		s.MaxMs = e.DurationMs
	}
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top N paths sorted by average duration (descending).
func topByAvg(stats map[string]*PathStat, n int) []PathStat {
	list := make([]PathStat, 0, len(stats))
	for _, s := range stats {
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs == list[j].AvgMs {
			return list[i].Path < list[j].Path
		}
		return list[i].AvgMs > list[j].AvgMs
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}

package hook

import "sync"

// DefaultDedupSize bounds the redelivery suppression window.
const DefaultDedupSize = 5000

// Deduper is a bounded, insertion-ordered record of recently processed
// event ids. Eviction is strict FIFO (oldest inserted first), not LRU:
// re-seeing an id does not refresh its position.
//
// State is process-lifetime only and resets on restart; that is an accepted
// limitation (the provider redelivers with the same id, and a restart
// window of duplicates is tolerable), not a defect.
//
// Safe for concurrent use.
type Deduper struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]struct{}
}

func NewDeduper(limit int) *Deduper {
	if limit <= 0 {
		limit = DefaultDedupSize
	}
	return &Deduper{
		limit: limit,
		seen:  make(map[string]struct{}, limit),
	}
}

// Seen records id and reports whether it was already recorded.
// An empty id is never deduplicated and never recorded.
func (d *Deduper) Seen(id string) bool {
	if id == "" {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	d.seen[id] = struct{}{}
	d.order = append(d.order, id)
	if len(d.order) > d.limit {
		oldest := d.order[0]
		delete(d.seen, oldest)
		d.order = d.order[1:]
		// Reclaim the backing array once the dead prefix dominates it.
		if cap(d.order) > 2*d.limit {
			d.order = append(make([]string, 0, d.limit), d.order...)
		}
	}
	return false
}

// Len returns the current window size.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

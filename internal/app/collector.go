package app

import (
	"sort"
	"sync"

	"github.com/bft-labs/usts/internal/domain"
)

// AddResult describes what one fragment did to its message.
type AddResult struct {
	// Started is true when the fragment opened a new collection for its id.
	Started bool

	// Count is the number of distinct parts held after the insert.
	Count int

	// Complete is true when the set reached its total and was evicted.
	// Payloads then holds the parts in index order.
	Complete bool
	Payloads [][]byte
}

// fragmentSet holds the parts of one message being collected.
type fragmentSet struct {
	mu     sync.Mutex
	parts  map[int][]byte
	total  int
	closed bool
}

// Collector buffers fragments per message id until every part has arrived.
// It is safe for concurrent use; each message id has its own lock.
type Collector struct {
	sets sync.Map // message id -> *fragmentSet
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Add stores f and reports whether its message is now complete.
// A repeated index overwrites the earlier payload without changing the count.
// When totals disagree between fragments the most recent one is used, and
// parts at or beyond that total are left out of the reassembled payloads.
// Memory grows with the parts received, never with the announced total.
func (c *Collector) Add(f domain.Fragment) AddResult {
	for {
		set, loaded := c.lookup(f.MessageID)

		set.mu.Lock()
		if set.closed {
			// Lost the race with eviction; the id starts over.
			set.mu.Unlock()
			continue
		}

		set.parts[f.Index] = f.Payload
		set.total = f.Total
		res := AddResult{Started: !loaded, Count: len(set.parts)}

		if res.Count >= set.total && set.complete() {
			set.closed = true
			c.sets.Delete(f.MessageID)
			res.Complete = true
			res.Payloads = set.ordered()
		}
		set.mu.Unlock()
		return res
	}
}

// lookup returns the set for id, creating it on a miss.
func (c *Collector) lookup(id string) (*fragmentSet, bool) {
	if v, ok := c.sets.Load(id); ok {
		return v.(*fragmentSet), true
	}
	v, loaded := c.sets.LoadOrStore(id, &fragmentSet{parts: make(map[int][]byte)})
	return v.(*fragmentSet), loaded
}

// Pending returns the number of messages still being collected.
func (c *Collector) Pending() int {
	n := 0
	c.sets.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// complete reports whether every index in [0,total) is present.
func (s *fragmentSet) complete() bool {
	for i := 0; i < s.total; i++ {
		if _, ok := s.parts[i]; !ok {
			return false
		}
	}
	return true
}

func (s *fragmentSet) ordered() [][]byte {
	idx := make([]int, 0, len(s.parts))
	for i := range s.parts {
		if i < s.total {
			idx = append(idx, i)
		}
	}
	sort.Ints(idx)
	out := make([][]byte, len(idx))
	for n, i := range idx {
		out[n] = s.parts[i]
	}
	return out
}

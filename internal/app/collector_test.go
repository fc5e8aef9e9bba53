package app

import (
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/usts/internal/domain"
	"github.com/bft-labs/usts/internal/protocol"
)

func frag(id string, index, total int, payload string) domain.Fragment {
	return domain.Fragment{MessageID: id, Index: index, Total: total, Payload: []byte(payload)}
}

func TestCollector_SingleFragment(t *testing.T) {
	c := NewCollector()

	res := c.Add(frag("m1", 0, 1, "hello world"+protocol.EndOfMessage))
	assert.True(t, res.Started)
	require.True(t, res.Complete)
	assert.Equal(t, "hello world", protocol.Reassemble(res.Payloads))
	assert.Zero(t, c.Pending())
}

func TestCollector_OutOfOrder(t *testing.T) {
	c := NewCollector()

	res := c.Add(frag("m1", 2, 3, "c"+protocol.EndOfMessage))
	assert.True(t, res.Started)
	assert.False(t, res.Complete)

	res = c.Add(frag("m1", 0, 3, "a"))
	assert.False(t, res.Started)
	assert.False(t, res.Complete)
	assert.Equal(t, 2, res.Count)

	res = c.Add(frag("m1", 1, 3, "b"))
	require.True(t, res.Complete)
	assert.Equal(t, "abc", protocol.Reassemble(res.Payloads))
	assert.Zero(t, c.Pending())
}

func TestCollector_DuplicateDoesNotCount(t *testing.T) {
	c := NewCollector()

	c.Add(frag("m1", 0, 2, "a"))
	res := c.Add(frag("m1", 0, 2, "a"))
	assert.Equal(t, 1, res.Count)
	assert.False(t, res.Complete)
	assert.Equal(t, 1, c.Pending())

	res = c.Add(frag("m1", 1, 2, "b"))
	assert.True(t, res.Complete)
}

func TestCollector_ReusedIDStartsFresh(t *testing.T) {
	c := NewCollector()

	first := c.Add(frag("m1", 0, 1, "x"))
	require.True(t, first.Complete)

	second := c.Add(frag("m1", 0, 2, "y"))
	assert.True(t, second.Started)
	assert.False(t, second.Complete)
	assert.Equal(t, 1, second.Count)
}

func TestCollector_LastTotalWins(t *testing.T) {
	c := NewCollector()

	c.Add(frag("m1", 0, 3, "a"))
	c.Add(frag("m1", 2, 3, "z"))
	res := c.Add(frag("m1", 1, 2, "b"))
	require.True(t, res.Complete)
	assert.Len(t, res.Payloads, 2)
	assert.Equal(t, "ab", protocol.Reassemble(res.Payloads))
	assert.NotContains(t, protocol.Reassemble(res.Payloads), "z")
	assert.Zero(t, c.Pending())
}

func TestCollector_LargeTotalAllocatesPerPart(t *testing.T) {
	c := NewCollector()

	var before, after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	for i := 0; i < 3; i++ {
		res := c.Add(frag("huge", i, 20_000_000, "a"))
		require.False(t, res.Complete)
	}
	runtime.ReadMemStats(&after)

	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(1<<20))
	assert.Equal(t, 1, c.Pending())
}

func TestCollector_LargerTotalKeepsCollecting(t *testing.T) {
	c := NewCollector()

	c.Add(frag("m1", 0, 2, "a"))
	res := c.Add(frag("m1", 1, 3, "b"))
	assert.False(t, res.Complete)

	res = c.Add(frag("m1", 2, 3, "c"))
	require.True(t, res.Complete)
	assert.Equal(t, "abc", protocol.Reassemble(res.Payloads))
}

func TestCollector_ConcurrentDelivery(t *testing.T) {
	const (
		messages = 20
		parts    = 16
		copies   = 3
	)
	c := NewCollector()

	// Every copy of every part except the last arrives first, shuffled and
	// concurrently; the last part of each message arrives once at the end.
	var head, tail []domain.Fragment
	for m := 0; m < messages; m++ {
		id := fmt.Sprintf("m%d", m)
		for p := 0; p < parts-1; p++ {
			for k := 0; k < copies; k++ {
				head = append(head, frag(id, p, parts, fmt.Sprintf("%02d", p)))
			}
		}
		tail = append(tail, frag(id, parts-1, parts, fmt.Sprintf("%02d", parts-1)))
	}
	rnd := rand.New(rand.NewSource(1))
	rnd.Shuffle(len(head), func(i, j int) { head[i], head[j] = head[j], head[i] })
	rnd.Shuffle(len(tail), func(i, j int) { tail[i], tail[j] = tail[j], tail[i] })

	var started, completed atomic.Int32
	var mu sync.Mutex
	texts := make(map[string]string)

	deliver := func(batch []domain.Fragment) {
		var wg sync.WaitGroup
		for _, f := range batch {
			wg.Add(1)
			go func(f domain.Fragment) {
				defer wg.Done()
				res := c.Add(f)
				if res.Started {
					started.Add(1)
				}
				if res.Complete {
					completed.Add(1)
					mu.Lock()
					texts[f.MessageID] = protocol.Reassemble(res.Payloads)
					mu.Unlock()
				}
			}(f)
		}
		wg.Wait()
	}
	deliver(head)
	assert.Zero(t, completed.Load(), "no message can complete before every part arrived")
	deliver(tail)

	assert.EqualValues(t, messages, started.Load())
	assert.EqualValues(t, messages, completed.Load())
	assert.Zero(t, c.Pending())

	var want string
	for p := 0; p < parts; p++ {
		want += fmt.Sprintf("%02d", p)
	}
	for id, text := range texts {
		assert.Equal(t, want, text, id)
	}
}

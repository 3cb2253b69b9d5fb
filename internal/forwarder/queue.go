package forwarder

import (
	"sync"

	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

type (
	// Queue is a bounded FIFO of events waiting to be forwarded.
	//
	// When full, Push drops the oldest entry. Entries stay queued
	// until acknowledged, so a failed send can be retried in order.
	//
	// An entry evicted while it is part of the batch returned by the last
	// Peek is only counted as dropped if that batch is not acknowledged.
	Queue struct {
		mu      sync.Mutex
		buf     []entry
		head    int
		size    int
		nextSeq uint64
		dropped uint64
		notify  chan struct{}

		// last seq of the batch being sent, valid when inFlight is set
		inFlightSeq uint64
		inFlight    bool
		// entries of the batch being sent that were evicted
		evictedInFlight uint64
	}
	entry struct {
		seq uint64
		ev  events.ChangeEvent
	}
)

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		buf:    make([]entry, capacity),
		notify: make(chan struct{}, 1),
	}
}

// Push appends ev and reports whether the oldest entry was dropped to make room.
// Evicting an entry of the batch being sent is not reported here, see Peek.
// It never blocks.
func (q *Queue) Push(ev events.ChangeEvent) (dropped bool) {
	q.mu.Lock()
	if q.size == len(q.buf) {
		if q.inFlight && q.buf[q.head].seq <= q.inFlightSeq {
			q.evictedInFlight++
		} else {
			q.dropped++
			dropped = true
		}
		q.buf[q.head] = entry{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
	q.buf[(q.head+q.size)%len(q.buf)] = entry{seq: q.nextSeq, ev: ev}
	q.nextSeq++
	q.size++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return dropped
}

// Peek returns up to n of the oldest entries without removing them,
// and marks them as the batch being sent.
//
// Peeking again without Ack means the previous batch was not delivered.
func (q *Queue) Peek(n int) []entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abandonInFlight()
	n = min(n, q.size)
	out := make([]entry, n)
	for i := range n {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	if n > 0 {
		q.inFlight = true
		q.inFlightSeq = out[n-1].seq
	}
	return out
}

// Ack removes every entry with a sequence number up to and including seq.
// Entries dropped in the meantime are skipped.
func (q *Queue) Ack(seq uint64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inFlight && seq >= q.inFlightSeq {
		// evicted entries of the batch were delivered
		q.evictedInFlight = 0
		q.inFlight = false
	}
	for q.size > 0 && q.buf[q.head].seq <= seq {
		q.buf[q.head] = entry{}
		q.head = (q.head + 1) % len(q.buf)
		q.size--
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Abandon marks the batch being sent as not delivered.
func (q *Queue) Abandon() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.abandonInFlight()
}

func (q *Queue) abandonInFlight() {
	q.dropped += q.evictedInFlight
	q.evictedInFlight = 0
	q.inFlight = false
}

// Dropped returns how many entries were dropped since the queue was created.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Notify receives a value after one or more Push calls.
func (q *Queue) Notify() <-chan struct{} {
	return q.notify
}

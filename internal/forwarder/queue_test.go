package forwarder

import (
	"testing"

	. "github.com/yusing/fswatch-forward/internal/utils/testing"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

func ev(path string) events.ChangeEvent {
	return events.ChangeEvent{Root: "/r", Path: path, Kind: events.Added}
}

func paths(entries []entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ev.Path
	}
	return out
}

func TestQueueDropOldest(t *testing.T) {
	q := NewQueue(3)
	var dropped int
	for _, p := range []string{"a", "b", "c", "d", "e"} {
		if q.Push(ev(p)) {
			dropped++
		}
	}
	ExpectEqual(t, dropped, 2)
	ExpectEqual(t, q.Dropped(), uint64(2))
	ExpectEqual(t, q.Len(), 3)
	ExpectDeepEqual(t, paths(q.Peek(10)), []string{"c", "d", "e"})
}

func TestQueueAck(t *testing.T) {
	q := NewQueue(4)
	for _, p := range []string{"a", "b", "c"} {
		q.Push(ev(p))
	}
	batch := q.Peek(2)
	ExpectDeepEqual(t, paths(batch), []string{"a", "b"})

	// not acked yet, a retry sees the same entries
	ExpectDeepEqual(t, paths(q.Peek(2)), []string{"a", "b"})

	q.Ack(batch[len(batch)-1].seq)
	ExpectDeepEqual(t, paths(q.Peek(10)), []string{"c"})
}

func TestQueueAckAfterDrop(t *testing.T) {
	q := NewQueue(2)
	q.Push(ev("a"))
	q.Push(ev("b"))
	batch := q.Peek(2)

	// overflow while the batch is in flight
	q.Push(ev("c"))
	q.Push(ev("d"))
	q.Ack(batch[len(batch)-1].seq)

	// a and b were written before the ack, nothing was lost
	ExpectDeepEqual(t, paths(q.Peek(10)), []string{"c", "d"})
	ExpectEqual(t, q.Dropped(), uint64(0))
}

func TestQueueRetryAfterDrop(t *testing.T) {
	q := NewQueue(2)
	q.Push(ev("a"))
	q.Push(ev("b"))
	q.Peek(2)

	ExpectFalse(t, q.Push(ev("c")))
	ExpectFalse(t, q.Push(ev("d")))
	ExpectEqual(t, q.Dropped(), uint64(0))

	// the send failed, the retry no longer has a and b
	ExpectDeepEqual(t, paths(q.Peek(10)), []string{"c", "d"})
	ExpectEqual(t, q.Dropped(), uint64(2))

	q.Push(ev("e"))
	q.Abandon()
	ExpectEqual(t, q.Dropped(), uint64(3))
}

func TestQueueNotify(t *testing.T) {
	q := NewQueue(2)
	q.Push(ev("a"))
	q.Push(ev("b"))
	select {
	case <-q.Notify():
	default:
		t.Fatal("expected notification")
	}
	select {
	case <-q.Notify():
		t.Fatal("expected a single pending notification")
	default:
	}
}

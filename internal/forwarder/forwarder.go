package forwarder

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/yusing/fswatch-forward/internal/common"
	"github.com/yusing/fswatch-forward/internal/config/types"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/logging"
	"github.com/yusing/fswatch-forward/internal/metrics"
	"github.com/yusing/fswatch-forward/internal/task"
	"github.com/yusing/fswatch-forward/internal/watcher/events"
)

type (
	Options struct {
		Target          types.ForwardTarget
		Codec           string
		QueueCapacity   int
		DialTimeout     time.Duration
		SendTimeout     time.Duration
		BackoffInitial  time.Duration
		BackoffMax      time.Duration
		ShutdownTimeout time.Duration
	}

	// Forwarder delivers events to a remote listener over TCP,
	// reconnecting with backoff while keeping the newest events queued.
	Forwarder struct {
		task  *task.Task
		opts  Options
		addr  string
		codec Codec
		queue *Queue

		connected atomic.Bool
		dropWarn  rate.Sometimes
		// drops already added to the dropped metric
		reported atomic.Uint64

		mu     sync.Mutex
		conn   net.Conn
		stopAt time.Time

		l zerolog.Logger
	}
)

const (
	sendBatchSize          = 64
	shutdownTimeoutDefault = 2 * time.Second
)

var errClosedByRemote = errors.New("connection closed by remote")

// New creates a forwarder. Call Start to begin delivering.
func New(parent task.Parent, opts Options) (*Forwarder, gperr.Error) {
	codec, err := NewCodec(opts.Codec)
	if err != nil {
		return nil, err
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = common.QueueCapacityDefault
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = common.DialTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = common.SendTimeout
	}
	if opts.BackoffInitial <= 0 {
		opts.BackoffInitial = common.BackoffInitialDefault
	}
	if opts.BackoffMax < opts.BackoffInitial {
		opts.BackoffMax = max(common.BackoffMaxDefault, opts.BackoffInitial)
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = shutdownTimeoutDefault
	}

	addr := opts.Target.String()
	f := &Forwarder{
		task:     parent.Subtask("forwarder"),
		opts:     opts,
		addr:     addr,
		codec:    codec,
		queue:    NewQueue(opts.QueueCapacity),
		dropWarn: rate.Sometimes{Interval: time.Second},
		l: logging.With().
			Str("module", "forwarder").
			Str("target", addr).
			Str("codec", codec.Name()).
			Logger(),
	}
	f.task.OnCancel("bound pending writes", func() {
		stopAt := f.stopDeadline()
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.conn != nil {
			_ = f.conn.SetWriteDeadline(stopAt)
		}
	})
	return f, nil
}

// Push queues ev for delivery. It never blocks: when the queue
// is full the oldest queued event is dropped.
func (f *Forwarder) Push(ev events.ChangeEvent) {
	f.queue.Push(ev)
	f.reportDrops()
	metrics.GetForwarderMetrics().QueueLength.Set(float64(f.queue.Len()))
}

// reportDrops adds drops not yet reported to the dropped metric.
func (f *Forwarder) reportDrops() {
	for {
		reported := f.reported.Load()
		dropped := f.queue.Dropped()
		if dropped <= reported {
			return
		}
		if !f.reported.CompareAndSwap(reported, dropped) {
			continue
		}
		metrics.GetForwarderMetrics().Dropped.Add(float64(dropped - reported))
		f.dropWarn.Do(func() {
			f.l.Warn().
				Uint64("dropped", dropped).
				Int("capacity", f.opts.QueueCapacity).
				Msg("queue full, dropping oldest events")
		})
		return
	}
}

// Start runs the connection loop until the task is canceled.
func (f *Forwarder) Start() {
	go f.run()
}

func (f *Forwarder) Task() *task.Task {
	return f.task
}

// Dropped returns how many events were dropped on overflow.
func (f *Forwarder) Dropped() uint64 {
	return f.queue.Dropped()
}

// Pending returns how many events are waiting to be sent.
func (f *Forwarder) Pending() int {
	return f.queue.Len()
}

func (f *Forwarder) Connected() bool {
	return f.connected.Load()
}

func (f *Forwarder) run() {
	defer f.task.Finish(nil)
	defer func() {
		if err := recover(); err != nil {
			f.l.Error().Interface("panic", err).Msg("recovered panic in forwarder")
			f.task.Finish(gperr.ErrUnhandledFault.Subject(f.task.Name()))
		}
	}()

	ctx := f.task.Context()
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(f.opts.BackoffInitial),
		backoff.WithMaxInterval(f.opts.BackoffMax),
		backoff.WithMaxElapsedTime(0),
	)

	for {
		conn, err := f.dial(ctx, f.opts.DialTimeout)
		if err != nil {
			if ctx.Err() != nil {
				f.shutdownFlush(nil)
				return
			}
			wait := b.NextBackOff()
			gperr.LogWarn("failed to connect, retrying in "+wait.String(), err, &f.l)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				f.shutdownFlush(nil)
				return
			}
		}

		b.Reset()
		f.setConn(conn)
		f.l.Info().Msg("connected")

		err = f.serve(ctx, conn)
		if ctx.Err() != nil {
			f.shutdownFlush(conn)
			f.setConn(nil)
			return
		}
		f.setConn(nil)
		gperr.LogWarn("disconnected", err, &f.l)
	}
}

func (f *Forwarder) dial(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", f.addr)
	if err != nil {
		metrics.GetForwarderMetrics().Dials.With("failure").Inc()
		return nil, gperr.ErrConnection.With(err)
	}
	metrics.GetForwarderMetrics().Dials.With("success").Inc()
	return conn, nil
}

// serve sends queued events on conn until the connection breaks
// or ctx is canceled.
func (f *Forwarder) serve(ctx context.Context, conn net.Conn) error {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		// the remote is not expected to send anything, read to notice it closing
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	}()

	for {
		if err := f.sendPending(conn); err != nil {
			return err
		}
		select {
		case <-f.queue.Notify():
		case <-closed:
			return gperr.ErrConnection.With(errClosedByRemote)
		case <-ctx.Done():
			return nil
		}
	}
}

// sendPending writes queued events in batches until the queue is empty.
//
// An entry is acknowledged only after the write containing it succeeded.
func (f *Forwarder) sendPending(conn net.Conn) error {
	m := metrics.GetForwarderMetrics()
	buf := make([]byte, 0, 4096)
	for {
		batch := f.queue.Peek(sendBatchSize)
		f.reportDrops()
		if len(batch) == 0 {
			return nil
		}

		buf = buf[:0]
		for _, e := range batch {
			var err error
			buf, err = f.codec.Append(buf, e.ev)
			if err != nil {
				// unencodable, skip it
				f.l.Err(err).Str("path", e.ev.Path).Msg("failed to encode event")
			}
		}

		if err := conn.SetWriteDeadline(f.writeDeadline()); err != nil {
			f.queue.Abandon()
			f.reportDrops()
			return gperr.ErrConnection.With(err)
		}
		if _, err := conn.Write(buf); err != nil {
			f.queue.Abandon()
			f.reportDrops()
			return gperr.ErrConnection.With(err)
		}

		f.queue.Ack(batch[len(batch)-1].seq)
		m.Forwarded.Add(float64(len(batch)))
		m.QueueLength.Set(float64(f.queue.Len()))
	}
}

// shutdownFlush makes one last attempt to send what is queued,
// dialing first when conn is nil. It returns within ShutdownTimeout.
func (f *Forwarder) shutdownFlush(conn net.Conn) {
	pending := f.queue.Len()
	if pending == 0 {
		return
	}
	deadline := f.stopDeadline()
	if conn == nil {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		defer cancel()
		var err error
		conn, err = f.dial(ctx, f.opts.DialTimeout)
		if err != nil {
			f.l.Warn().Int("pending", pending).Msg("remote unreachable on shutdown, discarding queued events")
			return
		}
		defer conn.Close()
	}
	if err := f.sendPending(conn); err != nil {
		f.l.Warn().Err(err).Int("pending", f.queue.Len()).Msg("final flush failed, discarding queued events")
		return
	}
	f.l.Debug().Int("sent", pending).Msg("final flush done")
}

// writeDeadline is SendTimeout from now, capped by the shutdown deadline
// once the task is canceled.
func (f *Forwarder) writeDeadline() time.Time {
	deadline := time.Now().Add(f.opts.SendTimeout)
	if f.task.Context().Err() != nil {
		if stopAt := f.stopDeadline(); stopAt.Before(deadline) {
			deadline = stopAt
		}
	}
	return deadline
}

// stopDeadline returns the time by which shutdown must be done.
// It is fixed on first call.
func (f *Forwarder) stopDeadline() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopAt.IsZero() {
		f.stopAt = time.Now().Add(f.opts.ShutdownTimeout)
	}
	return f.stopAt
}

// setConn records the current connection, closing the previous one.
func (f *Forwarder) setConn(conn net.Conn) {
	f.mu.Lock()
	if f.conn != nil {
		f.conn.Close()
	}
	f.conn = conn
	f.mu.Unlock()

	f.connected.Store(conn != nil)
	if conn != nil {
		metrics.GetForwarderMetrics().Connected.Set(1)
	} else {
		metrics.GetForwarderMetrics().Connected.Set(0)
	}
}

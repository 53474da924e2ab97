package daqwire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/daqwire/daqwire/wire"
)

const (
	// DefaultTimeout is the per-transaction reply timeout used when no
	// WithTimeout option is given.
	DefaultTimeout = 2 * time.Second

	// DefaultMaxInFlight bounds concurrently outstanding transactions per
	// connection. Submissions beyond the bound block until a slot frees.
	DefaultMaxInFlight = 16
)

// Result is the outcome of one command within a submission. Err isolates
// per-command failure: one register rejecting an operation does not taint
// its batch siblings. For successful reads Value holds the decoded
// register value; for writes it is the zero Value.
type Result struct {
	Value wire.Value
	Err   error
}

// completion is what the reader path hands to a waiting submitter.
type completion struct {
	reply *wire.Reply
	err   error
}

// Conn multiplexes many logical register transactions over one physical
// byte-stream connection. Exactly one writer path serializes outbound
// frames and exactly one reader goroutine demultiplexes inbound frames to
// waiting submitters by transaction id. Conn is safe for concurrent use.
//
// A Conn that loses its transport is terminal: every outstanding and
// subsequent submission resolves to ErrConnectionLost, and the caller
// must dial a fresh connection.
type Conn struct {
	conn     net.Conn
	log      zerolog.Logger
	timeout  time.Duration
	inflight *semaphore.Weighted

	// writeMu guarantees frames hit the transport atomically; concurrent
	// submissions must never interleave partial frame writes.
	writeMu sync.Mutex

	// mu guards the pending table and the transaction id counter. Both
	// registration and lookup-and-remove are atomic under it.
	mu      sync.Mutex
	pending map[uint16]chan completion
	nextTID uint16
	closed  bool
}

// ConnOption configures a Conn at construction time.
type ConnOption func(*Conn)

// WithTimeout sets the per-transaction reply timeout. Zero disables the
// timer entirely; callers then rely on context deadlines.
func WithTimeout(d time.Duration) ConnOption {
	return func(c *Conn) { c.timeout = d }
}

// WithMaxInFlight bounds the number of concurrently outstanding
// transactions. n must be at least 1.
func WithMaxInFlight(n int64) ConnOption {
	return func(c *Conn) { c.inflight = semaphore.NewWeighted(n) }
}

// WithLogger attaches a logger for diagnostic events (dropped replies,
// discarded frames, reader-loop exits). The default discards everything.
func WithLogger(log zerolog.Logger) ConnOption {
	return func(c *Conn) { c.log = log }
}

// Dial connects to a device endpoint (host:port) and starts the reader.
func Dial(ctx context.Context, addr string, opts ...ConnOption) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewConn(nc, opts...), nil
}

// NewConn wraps an established, ordered, reliable byte-stream connection.
// Ownership of nc transfers to the Conn.
func NewConn(nc net.Conn, opts ...ConnOption) *Conn {
	c := &Conn{
		conn:    nc,
		log:     zerolog.Nop(),
		timeout: DefaultTimeout,
		pending: make(map[uint16]chan completion),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.inflight == nil {
		c.inflight = semaphore.NewWeighted(DefaultMaxInFlight)
	}

	go c.readLoop()
	return c
}

// Submit dispatches a batch of commands and blocks until every command
// has an outcome. Results are returned one per command in submission
// order, regardless of the order the device replies in.
//
// A batch whose encoded size would exceed the device's frame limit is
// transparently partitioned into consecutive sub-batches, each dispatched
// as its own transaction; a failure in one sub-batch does not cancel
// siblings already in flight.
//
// The returned error covers caller mistakes (empty batch, oversized
// command, mismatched value type) and context cancellation. Transport and
// device failures resolve through the per-command Result errors.
func (c *Conn) Submit(ctx context.Context, cmds []wire.Command) ([]Result, error) {
	if len(cmds) == 0 {
		return nil, wire.ErrEmptyBatch
	}

	batches, err := splitBatch(cmds)
	if err != nil {
		return nil, err
	}
	if len(batches) == 1 {
		return c.roundTrip(ctx, batches[0])
	}

	parts := make([][]Result, len(batches))
	errs := make([]error, len(batches))

	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			parts[i], errs[i] = c.roundTrip(ctx, batch)
		}()
	}
	wg.Wait()

	results := make([]Result, 0, len(cmds))
	for i := range batches {
		if errs[i] != nil {
			return nil, errs[i]
		}
		results = append(results, parts[i]...)
	}
	return results, nil
}

// roundTrip dispatches exactly one frame and waits for its reply.
func (c *Conn) roundTrip(ctx context.Context, cmds []wire.Command) ([]Result, error) {
	if err := c.inflight.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.inflight.Release(1)

	tid, ch, err := c.register()
	if err != nil {
		return nil, err
	}

	frame, err := wire.EncodeFrame(tid, cmds)
	if err != nil {
		c.deregister(tid)
		return nil, err
	}

	if err := c.writeFrame(frame); err != nil {
		c.log.Warn().Err(err).Uint16("tid", tid).Msg("frame write failed")
		c.teardown(err)
		return failAll(cmds, ErrConnectionLost), nil
	}

	var timeoutC <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	select {
	case comp := <-ch:
		if comp.err != nil {
			return failAll(cmds, comp.err), nil
		}
		return mapReply(cmds, comp.reply), nil

	case <-timeoutC:
		c.deregister(tid)
		// The reader may have completed us between the timer firing and
		// the deregistration; the one-slot buffer preserves that outcome.
		select {
		case comp := <-ch:
			if comp.err != nil {
				return failAll(cmds, comp.err), nil
			}
			return mapReply(cmds, comp.reply), nil
		default:
		}
		c.log.Debug().Uint16("tid", tid).Dur("timeout", c.timeout).Msg("transaction timed out")
		return failAll(cmds, ErrTimeout), nil

	case <-ctx.Done():
		// Abandoning caller releases its pending entry; a late reply for
		// this id is dropped by the unmatched-id path.
		c.deregister(tid)
		return nil, ctx.Err()
	}
}

// register assigns a fresh transaction id and installs its completion
// channel. Ids wrap at 16 bits; an id still awaiting a reply is skipped,
// so two outstanding transactions never share one. The in-flight bound
// keeps the table far below the id space, so the skip loop terminates.
func (c *Conn) register() (uint16, chan completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, ErrConnectionLost
	}
	for {
		c.nextTID++
		if _, inUse := c.pending[c.nextTID]; !inUse {
			break
		}
	}
	ch := make(chan completion, 1)
	c.pending[c.nextTID] = ch
	return c.nextTID, ch, nil
}

func (c *Conn) deregister(tid uint16) {
	c.mu.Lock()
	delete(c.pending, tid)
	c.mu.Unlock()
}

func (c *Conn) writeFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	_, err := c.conn.Write(frame)
	return err
}

// readLoop is the single reader path: it consumes inbound bytes, feeds
// the streaming decoder and fans completed frames out to waiters. It
// exits only when the transport fails or the stream becomes undecodable,
// failing all outstanding work on the way out.
func (c *Conn) readLoop() {
	dec := &wire.Decoder{}
	buf := make([]byte, 4096)

	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			if !c.drain(dec) {
				return
			}
		}
		if err != nil {
			c.teardown(err)
			return
		}
	}
}

// drain pops every complete frame currently buffered. Frame-scoped decode
// failures (bad checksum, malformed command section) fail only the
// claimed transaction and leave the engine ready for the next frame;
// stream-scoped failures tear the connection down.
func (c *Conn) drain(dec *wire.Decoder) bool {
	for {
		reply, err := dec.Next()

		var ce *wire.ChecksumError
		if errors.As(err, &ce) {
			c.log.Warn().Uint16("tid", ce.TransactionID).Msg("discarding frame with checksum mismatch")
			c.fail(ce.TransactionID, err)
			continue
		}
		var fe *wire.FrameError
		if errors.As(err, &fe) {
			c.log.Warn().Uint16("tid", fe.TransactionID).Err(fe.Err).Msg("discarding malformed frame")
			c.fail(fe.TransactionID, err)
			continue
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("inbound stream undecodable")
			c.teardown(err)
			return false
		}
		if reply == nil {
			return true
		}
		c.complete(reply)
	}
}

// complete hands a decoded reply to its waiting submitter. A reply with
// no pending entry (timed out or abandoned) is logged and dropped, never
// treated as fatal.
func (c *Conn) complete(reply *wire.Reply) {
	c.mu.Lock()
	ch, ok := c.pending[reply.TransactionID]
	delete(c.pending, reply.TransactionID)
	c.mu.Unlock()

	if !ok {
		c.log.Debug().Uint16("tid", reply.TransactionID).Msg("dropping reply with no pending transaction")
		return
	}
	ch <- completion{reply: reply}
}

// fail resolves a single pending transaction with err.
func (c *Conn) fail(tid uint16, err error) {
	c.mu.Lock()
	ch, ok := c.pending[tid]
	delete(c.pending, tid)
	c.mu.Unlock()

	if ok {
		ch <- completion{err: err}
	}
}

// teardown moves the connection to its terminal state: every pending
// transaction resolves to ErrConnectionLost, in full, never a partial
// subset. Idempotent.
func (c *Conn) teardown(cause error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(pending) > 0 {
		c.log.Warn().Err(cause).Int("pending", len(pending)).Msg("connection lost with transactions outstanding")
	}
	for _, ch := range pending {
		ch <- completion{err: ErrConnectionLost}
	}
	_ = c.conn.Close()
}

// Connected reports whether the transport is still usable.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Close releases the transport. Outstanding submissions resolve to
// ErrConnectionLost. Safe to call more than once.
func (c *Conn) Close() error {
	c.teardown(net.ErrClosed)
	return nil
}

// splitBatch partitions commands into sub-batches that each fit one
// frame. A single command too large for any frame is a caller error.
func splitBatch(cmds []wire.Command) ([][]wire.Command, error) {
	const budget = wire.MaxFrameSize - wire.HeaderSize - wire.ChecksumSize

	var batches [][]wire.Command
	start, size := 0, 0
	for i, cmd := range cmds {
		n := cmd.EncodedSize()
		if n > budget {
			return nil, fmt.Errorf("%w: command for register %d encodes to %d bytes",
				wire.ErrFrameTooLarge, cmd.Address, n)
		}
		if size+n > budget || i-start == wire.MaxCommandsPerFrame {
			batches = append(batches, cmds[start:i])
			start, size = i, 0
		}
		size += n
	}
	return append(batches, cmds[start:]), nil
}

// mapReply pairs each command with its positional result. Positional
// correspondence is the protocol's contract; results are not re-sorted.
func mapReply(cmds []wire.Command, reply *wire.Reply) []Result {
	if len(reply.Results) != len(cmds) {
		err := fmt.Errorf("daqwire: reply carried %d results for %d commands",
			len(reply.Results), len(cmds))
		return failAll(cmds, err)
	}

	results := make([]Result, len(cmds))
	for i, res := range reply.Results {
		if res.Status != wire.StatusOK {
			results[i] = Result{Err: &wire.DeviceError{Status: res.Status}}
			continue
		}
		if cmds[i].Op == wire.OpRead {
			v, err := wire.DecodeValue(res.Payload, cmds[i].Type)
			if err != nil {
				results[i] = Result{Err: err}
				continue
			}
			results[i] = Result{Value: v}
		}
	}
	return results
}

func failAll(cmds []wire.Command, err error) []Result {
	results := make([]Result, len(cmds))
	for i := range results {
		results[i] = Result{Err: err}
	}
	return results
}

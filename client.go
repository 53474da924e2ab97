package daqwire

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/daqwire/daqwire/catalog"
	"github.com/daqwire/daqwire/wire"
)

// Config holds configuration for a device client.
type Config struct {
	// Catalog resolves register names. If nil, the catalog bundled with
	// this module is used.
	Catalog *catalog.Catalog

	// MaxConns is the maximum number of connections in the pool.
	// Zero means 1: a single multiplexed connection.
	MaxConns int32

	// Timeout is the per-transaction reply timeout.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxInFlight bounds concurrently outstanding transactions per
	// connection. Zero means DefaultMaxInFlight.
	MaxInFlight int64

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// Logger receives diagnostic events. If nil, logging is disabled.
	Logger *zerolog.Logger

	// NewCircuitBreaker creates a circuit breaker for the device
	// endpoint, called once at client construction.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker

	// for testing purposes only
	constructor func(ctx context.Context) (*Conn, error)
}

// WriteOp names one register write within WriteMany.
type WriteOp struct {
	Name  string
	Value wire.Value
}

// Client is the typed, name-based facade over the protocol engine. It
// resolves register names through the catalog, validates access modes and
// value types client-side, and delegates transactions to pooled
// connections. Client is safe for concurrent use.
type Client struct {
	addr    string
	catalog *catalog.Catalog
	pool    *connPool
	breaker CircuitBreaker
	log     zerolog.Logger
	stats   *clientStatsCollector
}

// NewClient creates a client for the device at addr (host:port).
// Connections are dialed lazily on first use.
func NewClient(addr string, config Config) (*Client, error) {
	cat := config.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	maxConns := config.MaxConns
	if maxConns <= 0 {
		maxConns = 1
	}

	log := zerolog.Nop()
	if config.Logger != nil {
		log = *config.Logger
	}

	opts := []ConnOption{WithLogger(log)}
	if config.Timeout > 0 {
		opts = append(opts, WithTimeout(config.Timeout))
	}
	if config.MaxInFlight > 0 {
		opts = append(opts, WithMaxInFlight(config.MaxInFlight))
	}

	constructor := config.constructor
	if constructor == nil {
		dialer := config.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}
		constructor = func(ctx context.Context) (*Conn, error) {
			nc, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			return NewConn(nc, opts...), nil
		}
	}

	pool, err := newConnPool(constructor, maxConns)
	if err != nil {
		return nil, err
	}

	client := &Client{
		addr:    addr,
		catalog: cat,
		pool:    pool,
		log:     log,
		stats:   newClientStatsCollector(),
	}
	if config.NewCircuitBreaker != nil {
		client.breaker = config.NewCircuitBreaker(addr)
	}
	return client, nil
}

// Close destroys every pooled connection. Outstanding submissions resolve
// to ErrConnectionLost.
func (c *Client) Close() {
	c.pool.close()
}

// Read resolves name and reads its current value.
func (c *Client) Read(ctx context.Context, name string) (wire.Value, error) {
	reg, err := c.readRegister(name)
	if err != nil {
		return wire.Value{}, err
	}

	results, err := c.submit(ctx, []wire.Command{
		wire.ReadCommand(uint16(reg.Address), reg.Type),
	})
	if err != nil {
		return wire.Value{}, err
	}
	if results[0].Err != nil {
		return wire.Value{}, fmt.Errorf("daqwire: read %s: %w", name, results[0].Err)
	}
	return results[0].Value, nil
}

// Write resolves name and stores value into it. The value's variant must
// match the register's declared type exactly.
func (c *Client) Write(ctx context.Context, name string, value wire.Value) error {
	reg, err := c.writeRegister(name, value)
	if err != nil {
		return err
	}

	results, err := c.submit(ctx, []wire.Command{
		wire.WriteCommand(uint16(reg.Address), reg.Type, value),
	})
	if err != nil {
		return err
	}
	if results[0].Err != nil {
		return fmt.Errorf("daqwire: write %s: %w", name, results[0].Err)
	}
	return nil
}

// ReadMany reads several registers in one round trip (or as few as the
// frame size limit allows), returning one Result per name in order.
// Resolution and access failures abort the call before any bytes are
// sent; device and transport failures resolve per item.
func (c *Client) ReadMany(ctx context.Context, names []string) ([]Result, error) {
	if len(names) == 0 {
		return nil, wire.ErrEmptyBatch
	}

	cmds := make([]wire.Command, len(names))
	for i, name := range names {
		reg, err := c.readRegister(name)
		if err != nil {
			return nil, err
		}
		cmds[i] = wire.ReadCommand(uint16(reg.Address), reg.Type)
	}
	return c.submit(ctx, cmds)
}

// WriteMany stores several registers in one round trip, returning one
// Result per operation in order. Validation behaves as in ReadMany.
func (c *Client) WriteMany(ctx context.Context, ops []WriteOp) ([]Result, error) {
	if len(ops) == 0 {
		return nil, wire.ErrEmptyBatch
	}

	cmds := make([]wire.Command, len(ops))
	for i, op := range ops {
		reg, err := c.writeRegister(op.Name, op.Value)
		if err != nil {
			return nil, err
		}
		cmds[i] = wire.WriteCommand(uint16(reg.Address), reg.Type, op.Value)
	}
	return c.submit(ctx, cmds)
}

// readRegister resolves a register and checks that it may be read.
func (c *Client) readRegister(name string) (catalog.Register, error) {
	reg, err := c.catalog.Resolve(name)
	if err != nil {
		return catalog.Register{}, err
	}
	if !reg.Access.CanRead() {
		return catalog.Register{}, &AccessError{Register: name, Access: reg.Access, Op: "read"}
	}
	return reg, nil
}

// writeRegister resolves a register and checks access and value type,
// both before any transport involvement.
func (c *Client) writeRegister(name string, value wire.Value) (catalog.Register, error) {
	reg, err := c.catalog.Resolve(name)
	if err != nil {
		return catalog.Register{}, err
	}
	if !reg.Access.CanWrite() {
		return catalog.Register{}, &AccessError{Register: name, Access: reg.Access, Op: "write"}
	}
	if value.IsZero() || value.Type() != reg.Type {
		return catalog.Register{}, fmt.Errorf("%w: register %q holds %s, value is %s",
			wire.ErrTypeMismatch, name, reg.Type, value.Type())
	}
	return reg, nil
}

// submit executes one batch on a pooled connection, wrapped by the
// circuit breaker when one is configured.
func (c *Client) submit(ctx context.Context, cmds []wire.Command) ([]Result, error) {
	var results []Result
	var err error
	if c.breaker != nil {
		results, err = c.breaker.Execute(func() ([]Result, error) {
			return c.submitDirect(ctx, cmds)
		})
	} else {
		results, err = c.submitDirect(ctx, cmds)
	}
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	c.record(cmds, results)
	return results, nil
}

func (c *Client) submitDirect(ctx context.Context, cmds []wire.Command) ([]Result, error) {
	resource, err := c.pool.acquire(ctx)
	if err != nil {
		return nil, err
	}
	conn := resource.Value()

	results, err := conn.Submit(ctx, cmds)
	if !conn.Connected() {
		resource.Destroy()
	} else {
		resource.Release()
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) record(cmds []wire.Command, results []Result) {
	batches, splitErr := splitBatch(cmds)
	c.stats.recordBatch(splitErr == nil && len(batches) > 1)

	reads, writes := 0, 0
	for i, res := range results {
		switch {
		case res.Err == nil:
			if cmds[i].Op == wire.OpRead {
				reads++
			} else {
				writes++
			}
		case errors.Is(res.Err, ErrTimeout):
			c.stats.recordTimeout()
		default:
			c.stats.recordError()
		}
	}
	c.stats.recordReads(reads)
	c.stats.recordWrites(writes)
}

// Stats returns a snapshot of client statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns a snapshot of connection pool statistics.
func (c *Client) PoolStats() PoolStats {
	return c.pool.stats()
}

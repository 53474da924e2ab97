// Package emulator implements an in-process device speaking the register
// protocol over a real TCP socket. It backs the package tests and the
// CLI's demo mode, replacing the physical device with a register memory
// seeded from a catalog.
//
// Fault injection hooks (drop a reply, corrupt a checksum, add latency)
// exist so the engine's failure paths can be exercised deterministically.
package emulator

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daqwire/daqwire/catalog"
	"github.com/daqwire/daqwire/wire"
)

// Server is one emulated device listening on a loopback port.
type Server struct {
	ln  net.Listener
	cat *catalog.Catalog

	mu    sync.Mutex
	mem   map[uint16]wire.Value
	conns map[net.Conn]struct{}

	frames      atomic.Int64
	dropNext    atomic.Bool
	corruptNext atomic.Bool
	latency     atomic.Int64 // nanoseconds applied before each reply

	closed atomic.Bool
	wg     sync.WaitGroup
}

// Start launches an emulated device on an ephemeral loopback port.
func Start(cat *catalog.Catalog) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		ln:    ln,
		cat:   cat,
		mem:   make(map[uint16]wire.Value),
		conns: make(map[net.Conn]struct{}),
	}

	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the host:port the emulator listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Close stops the listener, drops every open connection and waits for
// the handlers to exit.
func (s *Server) Close() {
	s.closed.Store(true)
	_ = s.ln.Close()

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// Preload seeds a register's memory by name, bypassing access modes.
func (s *Server) Preload(name string, v wire.Value) error {
	reg, err := s.cat.Resolve(name)
	if err != nil {
		return err
	}
	if v.Type() != reg.Type {
		return fmt.Errorf("emulator: register %q holds %s, value is %s", name, reg.Type, v.Type())
	}
	s.mu.Lock()
	s.mem[uint16(reg.Address)] = v
	s.mu.Unlock()
	return nil
}

// Register returns a register's current memory by name, for assertions.
func (s *Server) Register(name string) (wire.Value, bool) {
	reg, err := s.cat.Resolve(name)
	if err != nil {
		return wire.Value{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.mem[uint16(reg.Address)]
	return v, ok
}

// FrameCount reports how many request frames the emulator has decoded,
// across all connections.
func (s *Server) FrameCount() int64 { return s.frames.Load() }

// DropNextReply makes the emulator swallow the reply to the next frame it
// decodes, simulating a lost response.
func (s *Server) DropNextReply() { s.dropNext.Store(true) }

// CorruptNextReply flips a bit in the next reply's trailing checksum
// byte, simulating wire corruption.
func (s *Server) CorruptNextReply() { s.corruptNext.Store(true) }

// SetLatency delays every subsequent reply by d.
func (s *Server) SetLatency(d time.Duration) { s.latency.Store(int64(d)) }

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	dec := &wire.RequestDecoder{}
	buf := make([]byte, 4096)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			dec.Feed(buf[:n])
			for {
				req, err := dec.Next()
				if err != nil || req == nil {
					if err != nil {
						return
					}
					break
				}
				s.frames.Add(1)
				if s.dropNext.CompareAndSwap(true, false) {
					continue
				}
				if err := s.reply(conn, req); err != nil {
					return
				}
			}
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) reply(conn net.Conn, req *wire.Request) error {
	reply := &wire.Reply{TransactionID: req.TransactionID}
	for _, cmd := range req.Commands {
		reply.Results = append(reply.Results, s.execute(cmd))
	}

	frame, err := wire.EncodeReply(reply)
	if err != nil {
		return err
	}
	if s.corruptNext.CompareAndSwap(true, false) {
		frame[len(frame)-1] ^= 0xFF
	}
	if d := s.latency.Load(); d > 0 {
		time.Sleep(time.Duration(d))
	}

	_, err = conn.Write(frame)
	return err
}

// execute runs one command against the register memory, honoring the
// catalog's access modes the way the device firmware would.
func (s *Server) execute(cmd wire.Command) wire.Result {
	reg, ok := s.cat.ResolveAddress(uint32(cmd.Address))
	if !ok {
		return wire.Result{Status: wire.StatusIllegalAddress}
	}
	if cmd.Type != reg.Type {
		return wire.Result{Status: wire.StatusIllegalValue}
	}

	switch cmd.Op {
	case wire.OpRead:
		if !reg.Access.CanRead() {
			return wire.Result{Status: wire.StatusWriteOnly}
		}
		s.mu.Lock()
		v, ok := s.mem[cmd.Address]
		s.mu.Unlock()
		if !ok {
			v = zeroValue(reg.Type)
		}
		payload, err := wire.EncodeValue(v, reg.Type)
		if err != nil {
			return wire.Result{Status: wire.StatusDeviceFailure}
		}
		return wire.Result{Status: wire.StatusOK, Payload: payload}

	case wire.OpWrite:
		if !reg.Access.CanWrite() {
			return wire.Result{Status: wire.StatusReadOnly}
		}
		s.mu.Lock()
		s.mem[cmd.Address] = cmd.Value
		s.mu.Unlock()
		return wire.Result{Status: wire.StatusOK}
	}
	return wire.Result{Status: wire.StatusIllegalOpcode}
}

// zeroValue returns the powered-on default for a register type.
func zeroValue(t wire.DataType) wire.Value {
	switch t {
	case wire.Uint16:
		return wire.Uint16Value(0)
	case wire.Uint32:
		return wire.Uint32Value(0)
	case wire.Int32:
		return wire.Int32Value(0)
	case wire.Float32:
		return wire.Float32Value(0)
	case wire.Uint64:
		return wire.Uint64Value(0)
	case wire.String:
		return wire.StringValue("")
	case wire.Byte:
		return wire.ByteValue(nil)
	}
	return wire.Value{}
}

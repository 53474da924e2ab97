// Package catalog provides the static register catalog: the mapping from
// symbolic register names to wire addresses, data types and access modes.
//
// A catalog is loaded once at startup, either from the resource bundled
// with this module (Default) or from a caller-supplied TOML document
// (Load), and is immutable afterwards. It is shared by reference across
// every operation; there is no mutation surface.
package catalog

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/BurntSushi/toml"

	"github.com/daqwire/daqwire/wire"
)

// Access declares which directions a register supports. Violations are
// rejected client-side before any bytes reach the transport.
type Access uint8

const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

func (a Access) CanRead() bool  { return a == ReadOnly || a == ReadWrite }
func (a Access) CanWrite() bool { return a == WriteOnly || a == ReadWrite }

func (a Access) String() string {
	switch a {
	case ReadOnly:
		return "R"
	case WriteOnly:
		return "W"
	case ReadWrite:
		return "RW"
	}
	return "invalid"
}

func parseAccess(s string) (Access, error) {
	switch s {
	case "R":
		return ReadOnly, nil
	case "W":
		return WriteOnly, nil
	case "RW":
		return ReadWrite, nil
	}
	return 0, fmt.Errorf("unknown access mode %q", s)
}

// Register describes one named unit of device state.
type Register struct {
	Name    string
	Address uint32
	Type    wire.DataType
	Access  Access
}

// UnknownRegisterError is returned by Resolve when no catalog entry
// matches the requested name. Lookups are case-sensitive exact matches.
type UnknownRegisterError struct {
	Name string
}

func (e *UnknownRegisterError) Error() string {
	return fmt.Sprintf("catalog: unknown register %q", e.Name)
}

// LoadError reports a malformed catalog resource. Loading is a
// startup-time operation; this error is fatal, not recoverable per call.
type LoadError struct {
	Register string // offending entry, empty for document-level problems
	Reason   string
}

func (e *LoadError) Error() string {
	if e.Register == "" {
		return "catalog: " + e.Reason
	}
	return fmt.Sprintf("catalog: register %q: %s", e.Register, e.Reason)
}

// Catalog is an immutable register lookup table.
type Catalog struct {
	byName map[string]Register
	byAddr map[uint32]Register
	names  []string
}

// New builds a catalog from a register list, enforcing the catalog
// invariants: unique names, unique addresses, known data types, and
// addresses within the wire format's 16-bit range.
func New(regs []Register) (*Catalog, error) {
	c := &Catalog{
		byName: make(map[string]Register, len(regs)),
		byAddr: make(map[uint32]Register, len(regs)),
		names:  make([]string, 0, len(regs)),
	}

	for _, r := range regs {
		if r.Name == "" {
			return nil, &LoadError{Reason: "register with empty name"}
		}
		if _, dup := c.byName[r.Name]; dup {
			return nil, &LoadError{Register: r.Name, Reason: "duplicate name"}
		}
		if prev, dup := c.byAddr[r.Address]; dup {
			return nil, &LoadError{Register: r.Name,
				Reason: fmt.Sprintf("address %d already used by %q", r.Address, prev.Name)}
		}
		if r.Address > math.MaxUint16 {
			return nil, &LoadError{Register: r.Name,
				Reason: fmt.Sprintf("address %d exceeds the wire format's 16-bit range", r.Address)}
		}
		if r.Type.Size() == 0 && r.Type != wire.Byte {
			return nil, &LoadError{Register: r.Name,
				Reason: fmt.Sprintf("unknown data type tag %d", uint8(r.Type))}
		}

		c.byName[r.Name] = r
		c.byAddr[r.Address] = r
		c.names = append(c.names, r.Name)
	}

	slices.Sort(c.names)
	return c, nil
}

// Resolve returns the register named name, or *UnknownRegisterError.
func (c *Catalog) Resolve(name string) (Register, error) {
	r, ok := c.byName[name]
	if !ok {
		return Register{}, &UnknownRegisterError{Name: name}
	}
	return r, nil
}

// ResolveAddress performs the reverse lookup, used when decoding
// unsolicited or diagnostic frames.
func (c *Catalog) ResolveAddress(address uint32) (Register, bool) {
	r, ok := c.byAddr[address]
	return r, ok
}

// Len returns the number of registers in the catalog.
func (c *Catalog) Len() int { return len(c.byName) }

// Names returns every register name in sorted order. The returned slice
// is shared; callers must not modify it.
func (c *Catalog) Names() []string { return c.names }

// tomlDocument mirrors the catalog resource layout:
//
//	[[register]]
//	name = "AIN0"
//	address = 0
//	type = "FLOAT32"
//	access = "R"
type tomlDocument struct {
	Register []tomlRegister `toml:"register"`
}

type tomlRegister struct {
	Name    string `toml:"name"`
	Address int64  `toml:"address"`
	Type    string `toml:"type"`
	Access  string `toml:"access"`
}

// Load parses a TOML catalog resource. Any malformed entry fails the
// whole load.
func Load(r io.Reader) (*Catalog, error) {
	var doc tomlDocument
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &LoadError{Reason: err.Error()}
	}
	if len(doc.Register) == 0 {
		return nil, &LoadError{Reason: "no registers defined"}
	}

	regs := make([]Register, 0, len(doc.Register))
	for _, e := range doc.Register {
		if e.Address < 0 {
			return nil, &LoadError{Register: e.Name, Reason: fmt.Sprintf("negative address %d", e.Address)}
		}
		t, err := wire.ParseDataType(e.Type)
		if err != nil {
			return nil, &LoadError{Register: e.Name, Reason: fmt.Sprintf("unknown data type %q", e.Type)}
		}
		a, err := parseAccess(e.Access)
		if err != nil {
			return nil, &LoadError{Register: e.Name, Reason: err.Error()}
		}
		regs = append(regs, Register{
			Name:    e.Name,
			Address: uint32(e.Address),
			Type:    t,
			Access:  a,
		})
	}

	return New(regs)
}

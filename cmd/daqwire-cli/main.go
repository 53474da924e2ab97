// Command daqwire-cli performs one-shot register reads and writes against
// a device, or against a built-in emulated device with --demo.
//
// Usage:
//
//	daqwire-cli -addr 192.168.1.207:502 read AIN0 AIN1
//	daqwire-cli -addr 192.168.1.207:502 write DAC0 2.5
//	daqwire-cli -demo read SERIAL_NUMBER
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/daqwire/daqwire"
	"github.com/daqwire/daqwire/catalog"
	"github.com/daqwire/daqwire/internal/emulator"
	"github.com/daqwire/daqwire/wire"
)

func main() {
	addr := flag.String("addr", "", "device address (host:port)")
	timeout := flag.Duration("timeout", daqwire.DefaultTimeout, "reply timeout per transaction")
	demo := flag.Bool("demo", false, "run against a built-in emulated device")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if err := run(*addr, *timeout, *demo, *verbose, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, "daqwire-cli:", err)
		os.Exit(1)
	}
}

func run(addr string, timeout time.Duration, demo, verbose bool, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("expected a command: read NAME... | write NAME VALUE")
	}

	log := zerolog.Nop()
	if verbose {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}

	if demo {
		srv, err := emulator.Start(catalog.Default())
		if err != nil {
			return err
		}
		defer srv.Close()
		addr = srv.Addr()
	}
	if addr == "" {
		return fmt.Errorf("missing -addr (or use -demo)")
	}

	client, err := daqwire.NewClient(addr, daqwire.Config{
		Timeout: timeout,
		Logger:  &log,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout+time.Second)
	defer cancel()

	switch args[0] {
	case "read":
		if len(args) < 2 {
			return fmt.Errorf("read requires at least one register name")
		}
		results, err := client.ReadMany(ctx, args[1:])
		if err != nil {
			return err
		}
		for i, res := range results {
			if res.Err != nil {
				fmt.Printf("%s\terror: %v\n", args[1+i], res.Err)
				continue
			}
			fmt.Printf("%s\t%s\n", args[1+i], res.Value)
		}
		return nil

	case "write":
		if len(args) != 3 {
			return fmt.Errorf("write requires a register name and a value")
		}
		value, err := parseValue(args[1], args[2])
		if err != nil {
			return err
		}
		if err := client.Write(ctx, args[1], value); err != nil {
			return err
		}
		fmt.Printf("%s\t%s\n", args[1], value)
		return nil
	}
	return fmt.Errorf("unknown command %q", args[0])
}

// parseValue interprets raw according to the named register's declared
// data type.
func parseValue(name, raw string) (wire.Value, error) {
	reg, err := catalog.Default().Resolve(name)
	if err != nil {
		return wire.Value{}, err
	}

	switch reg.Type {
	case wire.Uint16:
		v, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return wire.Value{}, fmt.Errorf("register %s takes a UINT16: %w", name, err)
		}
		return wire.Uint16Value(uint16(v)), nil
	case wire.Uint32:
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return wire.Value{}, fmt.Errorf("register %s takes a UINT32: %w", name, err)
		}
		return wire.Uint32Value(uint32(v)), nil
	case wire.Int32:
		v, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return wire.Value{}, fmt.Errorf("register %s takes an INT32: %w", name, err)
		}
		return wire.Int32Value(int32(v)), nil
	case wire.Float32:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return wire.Value{}, fmt.Errorf("register %s takes a FLOAT32: %w", name, err)
		}
		return wire.Float32Value(float32(v)), nil
	case wire.Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return wire.Value{}, fmt.Errorf("register %s takes a UINT64: %w", name, err)
		}
		return wire.Uint64Value(v), nil
	case wire.String:
		return wire.StringValue(raw), nil
	case wire.Byte:
		return wire.ByteValue([]byte(raw)), nil
	}
	return wire.Value{}, fmt.Errorf("register %s has unsupported type %s", name, reg.Type)
}

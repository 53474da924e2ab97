// Package daqwire is a client for multi-channel data-acquisition devices
// speaking a binary register protocol over a reliable byte stream. It is
// a from-scratch implementation of the wire format, replacing the
// vendor's native driver library.
//
// The package is layered:
//
//   - wire holds the frame and value codecs (pure byte layout, no I/O).
//   - catalog holds the static register map bundled with the module.
//   - Conn multiplexes concurrent transactions over one connection,
//     correlating replies by transaction id and batching independent
//     operations into single round trips.
//   - Client is the typed, name-based facade most callers want.
//
// # Usage
//
//	client, err := daqwire.NewClient("192.168.1.207:502", daqwire.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	v, err := client.Read(ctx, "AIN0")
//	if err != nil {
//	    return err
//	}
//	fmt.Println("AIN0 =", v.Float64())
//
// Batched operations share one frame and one round trip:
//
//	results, err := client.ReadMany(ctx, []string{"AIN0", "AIN1", "SERIAL_NUMBER"})
//
// Callers needing raw address-level access can build wire.Commands and
// drive a Conn directly; Client adds only name resolution and
// client-side access/type validation on top.
package daqwire

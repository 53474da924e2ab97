package wire

// Checksum computes the CRC-16 variant used by this device family
// (polynomial 0xA001 reflected, initial value 0xFFFF). The algorithm is
// part of the compatibility contract and must match the device bit for
// bit; it is appended to frames big-endian like every other multi-byte
// field.
func Checksum(b []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, x := range b {
		crc ^= uint16(x)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

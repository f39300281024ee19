package tile

import "encoding/binary"

// Some titles obfuscate character data with a linear congruential generator
// run over 16-bit words.
const (
	lcgMultiplier = 1103515245
	lcgIncrement  = 24691
	lcgInverse    = 4005161829 // lcgMultiplier^-1 mod 2^32
)

// Cipher obfuscates b using key, which is the value returned by Decipher.
// Words are processed from last to first, stepping the generator backwards.
// A trailing odd byte is copied unchanged.
func Cipher(b []byte, key uint32) []byte {
	out := append([]byte{}, b...)
	for i := len(b)&^1 - 2; i >= 0; i -= 2 {
		key = (key - lcgIncrement) * lcgInverse
		binary.LittleEndian.PutUint16(out[i:], binary.LittleEndian.Uint16(b[i:])^uint16(key))
	}
	return out
}

// Decipher reverses the obfuscation applied to b. The generator is seeded
// with the first word. The returned key is the generator state after the
// last word, which is what Cipher needs to reproduce b.
func Decipher(b []byte) ([]byte, uint32) {
	out := append([]byte{}, b...)
	if len(b) < 2 {
		return out, 0
	}

	key := uint32(binary.LittleEndian.Uint16(b))
	for i := 0; i+1 < len(b); i += 2 {
		binary.LittleEndian.PutUint16(out[i:], binary.LittleEndian.Uint16(b[i:])^uint16(key))
		key = key*lcgMultiplier + lcgIncrement
	}
	return out, key
}

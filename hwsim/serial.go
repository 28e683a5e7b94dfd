package hwsim

import "golang.org/x/crypto/blake2s"

// AddrFromSerial derives a stable individual address from a board serial
// number, as a board EEPROM would be provisioned. The address is unicast and
// locally administered, so it never collides with a vendor assigned one.
func AddrFromSerial(serial string) (addr [6]byte) {
	sum := blake2s.Sum256([]byte(serial))
	copy(addr[:], sum[:6])
	addr[0] = addr[0]&^0x01 | 0x02
	return addr
}

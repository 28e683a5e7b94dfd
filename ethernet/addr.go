package ethernet

import "errors"

var errBadAddr = errors.New("ethernet: malformed hardware address")

// ParseAddr parses a hardware address written as six colon or dash separated
// hexadecimal octets, i.e: "00:cf:52:49:c3:01". Each octet must have one or
// two digits.
func ParseAddr(s string) (addr [6]byte, err error) {
	octet := 0
	digits := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ':' || c == '-' {
			if digits == 0 || octet == 5 {
				return addr, errBadAddr
			}
			octet++
			digits = 0
			continue
		}
		v, ok := hexval(c)
		if !ok || digits == 2 {
			return addr, errBadAddr
		}
		addr[octet] = addr[octet]<<4 | v
		digits++
	}
	if octet != 5 || digits == 0 {
		return [6]byte{}, errBadAddr
	}
	return addr, nil
}

func hexval(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// IsZeroAddr returns true if all octets of addr are zero.
func IsZeroAddr(addr [6]byte) bool {
	return addr == [6]byte{}
}

// IsMulticastAddr returns true if the group bit of addr is set. The broadcast
// address is a multicast address.
func IsMulticastAddr(addr [6]byte) bool {
	return addr[0]&1 != 0
}

// IsLocalAddr returns true if the locally administered bit of addr is set.
func IsLocalAddr(addr [6]byte) bool {
	return addr[0]&2 != 0
}

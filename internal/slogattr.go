package internal

import (
	"encoding/binary"
	"log/slog"
)

// SlogAddr6 returns a slog.Attr for a 6-byte hardware (MAC) address
// packed into a uint64 without allocating a string.
func SlogAddr6(key string, addr *[6]byte) slog.Attr {
	var buf [8]byte
	copy(buf[2:], addr[:])
	return slog.Uint64(key, binary.BigEndian.Uint64(buf[:]))
}

// SlogPages returns a slog.Attr for a packet memory page request.
func SlogPages(pages uint8) slog.Attr {
	return slog.Uint64("pages", uint64(pages))
}

package internal

import (
	"log/slog"
	"strconv"
)

// LevelTrace is below slog.LevelDebug and enables packet and bit-stream dumps.
const LevelTrace slog.Level = slog.LevelDebug - 2

// SlogHex16 returns a slog.Attr holding v formatted as 0x-prefixed hexadecimal.
func SlogHex16(key string, v uint16) slog.Attr {
	var buf [6]byte
	b := append(buf[:0], "0x"...)
	if v < 0x1000 {
		for sh := 12; sh > 0 && v>>sh == 0; sh -= 4 {
			b = append(b, '0')
		}
	}
	b = strconv.AppendUint(b, uint64(v), 16)
	return slog.String(key, string(b))
}

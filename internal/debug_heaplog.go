//go:build debugheaplog

package internal

import (
	"log/slog"
	"runtime"
	"sync"
)

const HeapAllocDebugging = true

var (
	memstats   runtime.MemStats
	lastAllocs uint64
	allocmu    sync.Mutex
)

func LogEnabled(l *slog.Logger, lvl slog.Level) bool {
	return true
}

// LogAttrs prints records with the builtin print so that logging itself does
// not allocate, then reports any heap growth since the previous record.
func LogAttrs(_ *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if level == LevelTrace {
		print("TRACE ")
	} else {
		print(level.String(), " ")
	}
	print(msg)
	for _, a := range attrs {
		switch a.Value.Kind() {
		case slog.KindString:
			print(" ", a.Key, "=", a.Value.String())
		case slog.KindInt64:
			print(" ", a.Key, "=", a.Value.Int64())
		case slog.KindUint64:
			print(" ", a.Key, "=", a.Value.Uint64())
		case slog.KindBool:
			print(" ", a.Key, "=", a.Value.Bool())
		}
	}
	println()
	allocmu.Lock()
	runtime.ReadMemStats(&memstats)
	if lastAllocs != 0 && lastAllocs != memstats.TotalAlloc {
		println("[ALLOC] inc=", int64(memstats.TotalAlloc)-int64(lastAllocs), "heap=", memstats.HeapAlloc)
	}
	lastAllocs = memstats.TotalAlloc
	allocmu.Unlock()
}

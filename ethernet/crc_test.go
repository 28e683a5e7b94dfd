package ethernet

import (
	"bytes"
	"testing"
)

func TestAppendFCS(t *testing.T) {
	// CRC-32/IEEE check value of "123456789" is 0xcbf43926.
	got := AppendFCS(nil, []byte("123456789"))
	if want := []byte{0x26, 0x39, 0xf4, 0xcb}; !bytes.Equal(got, want) {
		t.Errorf("FCS % x, want % x", got, want)
	}

	frame := make([]byte, 60)
	for i := range frame {
		frame[i] = byte(i * 7)
	}
	wire := AppendFCS(append([]byte(nil), frame...), frame)
	if len(wire) != 64 || !bytes.Equal(wire[:60], frame) {
		t.Fatal("frame not preserved")
	}
	if !ValidFCS(wire) {
		t.Error("appended FCS does not validate")
	}
	wire[10] ^= 1
	if ValidFCS(wire) {
		t.Error("corrupted frame validates")
	}
	if ValidFCS(wire[:3]) {
		t.Error("short frame validates")
	}
}

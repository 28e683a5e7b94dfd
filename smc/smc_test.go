package smc

import (
	"bytes"
	"errors"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/hwsim"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/internal/ltesto"
	"github.com/soypat/lan91c/regbank"
)

var testAddr = [6]byte{0x02, 0x91, 0xc1, 0x11, 0x00, 0x01}

// countingWindow counts register accesses made through it.
type countingWindow struct {
	*hwsim.Chip
	bank     regbank.Bank
	accesses int
	intReads int // Byte reads of the bank 2 interrupt status register.
}

func (w *countingWindow) Read8(off uint8) uint8 {
	w.accesses++
	if w.bank == regbank.Bank2 && off == regbank.INT {
		w.intReads++
	}
	return w.Chip.Read8(off)
}

func (w *countingWindow) Read16(off uint8) uint16 {
	w.accesses++
	return w.Chip.Read16(off)
}

func (w *countingWindow) Read32(off uint8) uint32 {
	w.accesses++
	return w.Chip.Read32(off)
}

func (w *countingWindow) Write8(off uint8, v uint8) {
	w.accesses++
	if off == regbank.BSR {
		w.bank = regbank.Bank(v & 3)
	}
	w.Chip.Write8(off, v)
}

func (w *countingWindow) Write16(off uint8, v uint16) {
	w.accesses++
	if off == regbank.BSR {
		w.bank = regbank.Bank(v & 3)
	}
	w.Chip.Write16(off, v)
}

func (w *countingWindow) Write32(off uint8, v uint32) {
	w.accesses++
	w.Chip.Write32(off, v)
}

type testRig struct {
	dev  *Device
	chip *hwsim.Chip
	win  *countingWindow
	clk  *ltesto.FakeClock
	rx   [][]byte
}

func newRig(t *testing.T, chipcfg hwsim.Config, cfg Config) *testRig {
	t.Helper()
	rig := &testRig{clk: ltesto.NewFakeClock()}
	rig.chip = hwsim.New(chipcfg)
	rig.win = &countingWindow{Chip: rig.chip}
	cfg.Clock = rig.clk
	if cfg.Sink == nil {
		cfg.Sink = func(frame []byte) {
			rig.rx = append(rig.rx, append([]byte(nil), frame...))
		}
	}
	dev, err := New(rig.win, cfg)
	if err != nil {
		t.Fatal(err)
	}
	rig.dev = dev
	return rig
}

// openRig returns a rig whose device has been opened with a chip holding
// testAddr in its EEPROM.
func openRig(t *testing.T, chipcfg hwsim.Config, cfg Config) *testRig {
	t.Helper()
	if chipcfg.Addr == ([6]byte{}) {
		chipcfg.Addr = testAddr
	}
	rig := newRig(t, chipcfg, cfg)
	err := rig.dev.Open()
	if err != nil {
		t.Fatal("open:", err)
	}
	return rig
}

// setPointers leaves bank 2 selected with the given packet number and pointer.
func (rig *testRig) setPointers(pnr uint8, ptr uint16) {
	rig.chip.Write16(regbank.BSR, uint16(regbank.Bank2))
	rig.chip.Write8(regbank.PNR, pnr)
	rig.chip.Write16(regbank.PTR, ptr)
}

func (rig *testRig) checkPointers(t *testing.T, pnr uint8, ptr uint16) {
	t.Helper()
	bank, gotpnr, gotptr := rig.chip.Pointers()
	if bank != regbank.Bank2 || gotpnr != pnr || gotptr != ptr {
		t.Errorf("registers not restored: bank=%d pnr=%d ptr=%#04x, want bank=2 pnr=%d ptr=%#04x", bank, gotpnr, gotptr, pnr, ptr)
	}
}

func newFrame(rng *rand.Rand, size int) []byte {
	gen := ltesto.FrameGen{DstMAC: ethernet.BroadcastAddr(), SrcMAC: testAddr}
	return gen.AppendRandomFrame(nil, rng, size)
}

func TestPages(t *testing.T) {
	for n := 0; n <= 4096; n++ {
		want := (max(n, 60)&^1 + 6) >> 8
		pages, err := Pages(n)
		if want > MaxPages {
			if !errors.Is(err, lan91c.ErrFrameTooLarge) {
				t.Fatalf("Pages(%d): want ErrFrameTooLarge, got %d, %v", n, pages, err)
			}
			continue
		}
		if err != nil || int(pages) != want {
			t.Fatalf("Pages(%d)=%d,%v want %d", n, pages, err, want)
		}
	}
	// Every length up to the documented bound fits.
	if _, err := Pages(7*256 - 6); err != nil {
		t.Error(err)
	}
}

func TestEnvelope(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, size := range []int{14, 46, 59, 60, 61, 1513, 1514} {
		frame := newFrame(rng, size)
		env, err := AppendEnvelope(nil, frame)
		if err != nil {
			t.Fatal(err)
		}
		padded := max(size, MinFrameLength)
		if len(env) != padded&^1+6 {
			t.Errorf("size %d: envelope length %d", size, len(env))
		}
		if count := int(env[2]) | int(env[3])<<8; count != padded+6 {
			t.Errorf("size %d: byte count %d, want %d", size, count, padded+6)
		}
		got, status, err := DecodeEnvelope(env)
		if err != nil {
			t.Fatal(err)
		}
		want := append(frame, make([]byte, padded-size)...)
		if status != 0 || !bytes.Equal(got, want) {
			t.Errorf("size %d: decoded frame mismatch", size)
		}
	}
	if _, err := AppendEnvelope(nil, make([]byte, 2042)); !errors.Is(err, lan91c.ErrFrameTooLarge) {
		t.Errorf("want ErrFrameTooLarge, got %v", err)
	}
	if _, _, err := DecodeEnvelope([]byte{0, 0, 0x40, 0}); err == nil {
		t.Error("truncated envelope decoded")
	}
}

func TestTransmitMinimumFrame(t *testing.T) {
	rig := openRig(t, hwsim.Config{}, Config{})
	rng := rand.New(rand.NewSource(46))
	frame := newFrame(rng, 46)
	rig.setPointers(3, 0x1234)

	n, err := rig.dev.Transmit(frame)
	if err != nil {
		t.Fatal(err)
	}
	if n != 60 {
		t.Errorf("sent %d bytes, want 60", n)
	}
	rig.checkPointers(t, 3, 0x1234)
	sent := rig.chip.Transmitted()
	if len(sent) != 1 {
		t.Fatalf("transmitted %d frames", len(sent))
	}
	want := []byte{0, 0, 0x42, 0}
	want = append(want, frame...)
	want = append(want, make([]byte, 14)...)
	want = append(want, 0, 0)
	if !bytes.Equal(sent[0].Raw, want) {
		t.Errorf("packet memory:\n got % x\nwant % x", sent[0].Raw, want)
	}
	if rig.chip.FreePackets() != 4 {
		t.Error("packet not auto-released")
	}
	st := rig.dev.Stats()
	if st.TxFrames != 1 || st.TxBytes != 60 {
		t.Errorf("stats %+v", st)
	}
}

func TestTransmitSizes(t *testing.T) {
	for _, use32 := range []bool{false, true} {
		rig := openRig(t, hwsim.Config{}, Config{Use32Bit: use32})
		rng := rand.New(rand.NewSource(2))
		sizes := []int{60, 61, 62, 255, 1000, 1513, 1514}
		for _, size := range sizes {
			frame := newFrame(rng, size)
			n, err := rig.dev.Transmit(frame)
			if err != nil || n != size {
				t.Fatalf("32bit=%v size %d: n=%d err=%v", use32, size, n, err)
			}
		}
		sent := rig.chip.Transmitted()
		if len(sent) != len(sizes) {
			t.Fatalf("transmitted %d frames", len(sent))
		}
		rng = rand.New(rand.NewSource(2))
		for i, size := range sizes {
			if !bytes.Equal(sent[i].Frame, newFrame(rng, size)) {
				t.Errorf("32bit=%v size %d: frame on wire differs", use32, size)
			}
		}
	}
}

func TestTransmitTooLarge(t *testing.T) {
	rig := openRig(t, hwsim.Config{}, Config{})
	before := rig.win.accesses
	n, err := rig.dev.Transmit(make([]byte, 2042))
	if n != 0 || !errors.Is(err, lan91c.ErrFrameTooLarge) {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if rig.win.accesses != before {
		t.Errorf("%d register accesses for a rejected frame", rig.win.accesses-before)
	}
	if rig.dev.Stats().TxTooLarge != 1 {
		t.Error("not counted")
	}
}

func TestAllocationExhausted(t *testing.T) {
	rig := openRig(t, hwsim.Config{AllocIntBroken: true}, Config{})
	rig.setPointers(1, regbank.PTRAutoInc|0x20)
	rig.win.intReads = 0
	n, err := rig.dev.Transmit(make([]byte, 100))
	if n != 0 || !errors.Is(err, lan91c.ErrAllocationExhausted) || !errors.Is(err, lan91c.ErrTransmitAllocation) {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if rig.win.intReads != DefaultAllocAttempts*DefaultAllocSpin {
		t.Errorf("polled allocation status %d times, want %d", rig.win.intReads, DefaultAllocAttempts*DefaultAllocSpin)
	}
	rig.checkPointers(t, 1, regbank.PTRAutoInc|0x20)
	st := rig.dev.Stats()
	if st.AllocExhausted != 1 || st.AllocAttempts != DefaultAllocAttempts {
		t.Errorf("stats %+v", st)
	}
	if c := rig.chip.Counters(); c.Enqueued != 0 {
		t.Error("frame enqueued after failed allocation")
	}
}

func TestAllocationFailed(t *testing.T) {
	rig := openRig(t, hwsim.Config{AllocFail: true}, Config{})
	_, err := rig.dev.Transmit(make([]byte, 100))
	if !errors.Is(err, lan91c.ErrAllocationFailed) || !errors.Is(err, lan91c.ErrTransmitAllocation) {
		t.Fatal(err)
	}
	if rig.dev.Stats().AllocFailed != 1 {
		t.Error("not counted")
	}
}

func TestTransmitTimeout(t *testing.T) {
	const timeout = 30 * time.Millisecond
	rig := openRig(t, hwsim.Config{TxStall: true}, Config{TxTimeout: Duration(timeout)})
	rig.setPointers(2, 0x44)
	rig.clk.Reset()
	n, err := rig.dev.Transmit(make([]byte, 60))
	if n != 0 || !errors.Is(err, lan91c.ErrTransmitTimeout) {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if rig.clk.Slept < timeout || rig.clk.Slept > timeout+DefaultMMUPoll {
		t.Errorf("gave up after %s", rig.clk.Slept)
	}
	rig.checkPointers(t, 2, 0x44)
	if rig.dev.Stats().TxTimeouts != 1 {
		t.Error("not counted")
	}
}

func TestTransmitSlowCompletion(t *testing.T) {
	// 5000 status polls at the default poll interval is 50ms on the wire,
	// as a frame deferring through collision backoff on a busy segment.
	rig := openRig(t, hwsim.Config{TxLatency: 5000}, Config{})
	rig.clk.Reset()
	n, err := rig.dev.Transmit(make([]byte, 100))
	if err != nil || n != 100 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if rig.clk.Slept < 45*time.Millisecond {
		t.Errorf("transmit completed after %s", rig.clk.Slept)
	}
	if rig.clk.Slept >= DefaultTxTimeout {
		t.Errorf("slept %s, beyond the transmit budget", rig.clk.Slept)
	}
}

func TestTransmitAfterTimeout(t *testing.T) {
	rig := openRig(t, hwsim.Config{TxLatency: 5000}, Config{TxTimeout: Duration(30 * time.Millisecond)})
	frame := make([]byte, 60)
	if _, err := rig.dev.Transmit(frame); !errors.Is(err, lan91c.ErrTransmitTimeout) {
		t.Fatal("want timeout, got", err)
	}
	// The timed out frame goes out late and leaves TX_EMPTY set.
	rig.setPointers(0, 0)
	for len(rig.chip.Transmitted()) == 0 {
		rig.chip.Read8(regbank.INT)
	}
	n, err := rig.dev.Transmit(frame)
	if n != 0 || !errors.Is(err, lan91c.ErrTransmitTimeout) {
		t.Fatalf("stale TX_EMPTY reported as completion: n=%d err=%v", n, err)
	}
	if sent := len(rig.chip.Transmitted()); sent != 1 {
		t.Errorf("%d frames on the wire, want 1", sent)
	}
}

func TestTransmitMMUBusy(t *testing.T) {
	rig := openRig(t, hwsim.Config{BusyReads: 3}, Config{})
	before := rig.dev.Stats().MMUWaits
	_, err := rig.dev.Transmit(make([]byte, 60))
	if err != nil {
		t.Fatal(err)
	}
	if waits := rig.dev.Stats().MMUWaits - before; waits != 3 {
		t.Errorf("waited %d polls for the MMU, want 3", waits)
	}
}

func TestReceive(t *testing.T) {
	for _, use32 := range []bool{false, true} {
		rig := openRig(t, hwsim.Config{}, Config{Use32Bit: use32})
		rng := rand.New(rand.NewSource(3))
		for _, size := range []int{60, 61, 100, 1514} {
			frame := newFrame(rng, size)
			if err := rig.chip.Inject(frame); err != nil {
				t.Fatal(err)
			}
			rig.setPointers(1, 0x10)
			n, err := rig.dev.Receive()
			if err != nil {
				t.Fatal(err)
			}
			// Byte count minus status and count words.
			want := size&^1 + 2
			if n != want || len(rig.rx) != 1 || len(rig.rx[0]) != want {
				t.Fatalf("32bit=%v size %d: received %d bytes, want %d", use32, size, n, want)
			}
			if !bytes.Equal(rig.rx[0][:size], frame) {
				t.Errorf("32bit=%v size %d: payload mismatch", use32, size)
			}
			if size&1 != 0 && rig.rx[0][size] != regbank.CtlOdd {
				t.Errorf("size %d: control byte %#x", size, rig.rx[0][size])
			}
			rig.checkPointers(t, 1, 0x10)
			rig.rx = rig.rx[:0]
		}
		n, err := rig.dev.Receive()
		if n != 0 || err != nil {
			t.Errorf("empty FIFO: n=%d err=%v", n, err)
		}
		if st := rig.dev.Stats(); st.RxFrames != 4 || st.RxEmptyPolls != 1 {
			t.Errorf("stats %+v", st)
		}
	}
}

func TestReceiveReleasesEveryPacket(t *testing.T) {
	rig := openRig(t, hwsim.Config{}, Config{})
	rng := rand.New(rand.NewSource(4))
	statuses := []uint16{0, regbank.RSBadCRC, 0, regbank.RSAlignErr | regbank.RSTooShort}
	for _, st := range statuses {
		if err := rig.chip.InjectStatus(newFrame(rng, 64), st); err != nil {
			t.Fatal(err)
		}
	}
	var polls, discarded int
	for i := 0; i < 10; i++ {
		queued := rig.chip.RxQueued()
		n, err := rig.dev.Receive()
		if queued > 0 {
			polls++
		}
		if errors.Is(err, lan91c.ErrReceiveError) {
			discarded++
		} else if err != nil {
			t.Fatal(err)
		} else if n == 0 && queued > 0 {
			t.Fatal("queued frame not received")
		}
	}
	c := rig.chip.Counters()
	if c.Releases != polls || polls != len(statuses) {
		t.Errorf("%d releases for %d non-empty polls", c.Releases, polls)
	}
	if discarded != 2 || len(rig.rx) != 2 {
		t.Errorf("discarded %d delivered %d", discarded, len(rig.rx))
	}
	if rig.chip.FreePackets() != 4 {
		t.Errorf("leaked %d packets", 4-rig.chip.FreePackets())
	}
	if st := rig.dev.Stats(); st.RxErrors != 2 {
		t.Errorf("stats %+v", st)
	}
}

func TestPoll(t *testing.T) {
	rig := openRig(t, hwsim.Config{Packets: 8}, Config{})
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 5; i++ {
		status := uint16(0)
		if i == 2 {
			status = regbank.RSTooLong
		}
		rig.chip.InjectStatus(newFrame(rng, 80), status)
	}
	n, err := rig.dev.Poll(3)
	if n != 2 || !errors.Is(err, lan91c.ErrReceiveError) {
		t.Errorf("first poll: n=%d err=%v", n, err)
	}
	n, err = rig.dev.Poll(10)
	if n != 2 || err != nil {
		t.Errorf("second poll: n=%d err=%v", n, err)
	}
}

func TestLoopback(t *testing.T) {
	rig := openRig(t, hwsim.Config{Loopback: true}, Config{})
	frame := newFrame(rand.New(rand.NewSource(6)), 200)
	if _, err := rig.dev.Transmit(frame); err != nil {
		t.Fatal(err)
	}
	if _, err := rig.dev.Receive(); err != nil {
		t.Fatal(err)
	}
	if len(rig.rx) != 1 || !bytes.Equal(rig.rx[0][:200], frame) {
		t.Error("looped back frame differs")
	}
}

func TestServiceInterruptTxError(t *testing.T) {
	rig := openRig(t, hwsim.Config{TxStatusFail: regbank.TSLostCarr}, Config{})
	if _, err := rig.dev.Transmit(make([]byte, 60)); err != nil {
		t.Fatal(err)
	}
	if !rig.chip.InterruptLine() {
		t.Fatal("transmit error did not interrupt")
	}
	if rig.chip.Peek16(regbank.Bank0, regbank.TCR)&regbank.TCREnable != 0 {
		t.Fatal("transmitter still enabled after error")
	}
	rig.setPointers(0, 0x08)
	if err := rig.dev.ServiceInterrupt(); err != nil {
		t.Fatal(err)
	}
	rig.checkPointers(t, 0, 0x08)
	if rig.chip.Peek16(regbank.Bank0, regbank.TCR)&regbank.TCREnable == 0 {
		t.Error("transmitter not re-enabled")
	}
	if rig.chip.FreePackets() != 4 || rig.chip.Counters().FreedPackets != 1 {
		t.Error("failed packet not freed")
	}
	if rig.chip.InterruptLine() {
		t.Error("interrupt still pending")
	}
	if rig.dev.Stats().TxErrors != 1 {
		t.Error("not counted")
	}
}

func TestServiceInterruptLeavesPHYMasked(t *testing.T) {
	rig := openRig(t, hwsim.Config{}, Config{})
	rig.chip.PHY().DropLink()
	if rig.chip.Peek16(regbank.Bank2, regbank.INT)&regbank.IntMD == 0 {
		t.Fatal("link failure did not raise the management interrupt status")
	}
	if rig.chip.InterruptLine() {
		t.Fatal("management interrupt not masked")
	}
	frames := len(rig.chip.PHY().Frames())
	if err := rig.dev.ServiceInterrupt(); err != nil {
		t.Fatal(err)
	}
	if n := len(rig.chip.PHY().Frames()) - frames; n != 0 {
		t.Errorf("%d management frames while servicing interrupts", n)
	}
	if rig.chip.Peek16(regbank.Bank2, regbank.INT)&regbank.IntMD == 0 {
		t.Error("masked management interrupt acknowledged")
	}
}

func TestServiceInterruptReceive(t *testing.T) {
	rig := openRig(t, hwsim.Config{}, Config{})
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 5; i++ {
		err := rig.chip.Inject(newFrame(rng, 128))
		if i < 4 && err != nil {
			t.Fatal(err)
		} else if i == 4 && err == nil {
			t.Fatal("expected overrun with memory full")
		}
	}
	if err := rig.dev.ServiceInterrupt(); err != nil {
		t.Fatal(err)
	}
	if len(rig.rx) != 4 {
		t.Errorf("delivered %d frames", len(rig.rx))
	}
	if st := rig.dev.Stats(); st.RxOverruns != 1 {
		t.Errorf("stats %+v", st)
	}
	if rig.chip.InterruptLine() {
		t.Error("interrupt still pending")
	}
}

func TestLogLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: internal.LevelTrace}))
	rig := openRig(t, hwsim.Config{}, Config{Logger: logger})
	frame := newFrame(rand.New(rand.NewSource(8)), 64)
	rig.dev.Transmit(frame)
	if !bytes.Contains(buf.Bytes(), []byte("smc:tx")) {
		t.Fatal("no trace record for transmit")
	}
	buf.Reset()
	rig.dev.SetLogLevel(slog.LevelInfo)
	rig.dev.Transmit(frame)
	if buf.Len() != 0 {
		t.Errorf("logged below level: %s", buf.String())
	}
}

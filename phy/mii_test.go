package phy

import (
	"strings"
	"testing"

	"github.com/soypat/lan91c/internal/ltesto"
)

func TestBuildCycleCounts(t *testing.T) {
	rd := BuildRead(nil, 0, AddrBMCR)
	if len(rd) != 64 || len(rd) != ReadCycles {
		t.Fatalf("read frame has %d cycles, want 64", len(rd))
	}
	wr := BuildWrite(nil, 0, AddrBMCR, 0x8000)
	if len(wr) != 65 || len(wr) != WriteCycles {
		t.Fatalf("write frame has %d cycles, want 65", len(wr))
	}
	// Read: every cycle after the register address is undriven.
	for i, c := range rd[HeaderCycles:] {
		if c != 0 {
			t.Errorf("read cycle %d driven: %#x", HeaderCycles+i, c)
		}
	}
	// Write: two undriven turnaround bits, 16 driven data bits, undriven final bit.
	if wr[HeaderCycles] != 0 || wr[HeaderCycles+1] != 0 || wr[WriteCycles-1] != 0 {
		t.Error("write turnaround or final bit driven")
	}
	for i, c := range wr[HeaderCycles+2 : WriteCycles-1] {
		if c&CycleOE == 0 {
			t.Errorf("write data cycle %d not driven", i)
		}
	}
}

func TestBuildHeaderMSBFirst(t *testing.T) {
	cycles := BuildRead(nil, 0b10110, 0b00011)
	bits := func(cs []Cycle) (s string) {
		for _, c := range cs {
			if c&CycleOut != 0 {
				s += "1"
			} else {
				s += "0"
			}
		}
		return s
	}
	got := bits(cycles[32:HeaderCycles])
	const want = "01" + "10" + "10110" + "00011"
	if got != want {
		t.Errorf("header bits %s, want %s", got, want)
	}
}

func TestDecodeFrameRoundTrip(t *testing.T) {
	values := []uint16{0, 1, 0x8000, 0x3fc0, 0x5555, 0xaaaa, 0xffff}
	for phyAddr := uint8(0); phyAddr < 32; phyAddr++ {
		for reg := uint8(0); reg < 32; reg++ {
			for _, v := range values {
				wr := BuildWrite(nil, phyAddr, reg, v)
				frm, err := DecodeFrame(wr)
				if err != nil {
					t.Fatal(err)
				}
				if frm != (Frame{Op: OpWrite, PHYAddr: phyAddr, Reg: reg, Data: v}) {
					t.Fatalf("write decode mismatch: %+v", frm)
				}
				rd := BuildRead(nil, phyAddr, reg)
				// Simulate the PHY presenting v during the data field.
				for i := 0; i < 16; i++ {
					if v&(0x8000>>i) != 0 {
						rd[readDataStart+i] |= CycleIn
					}
				}
				frm, err = DecodeFrame(rd)
				if err != nil {
					t.Fatal(err)
				}
				if frm != (Frame{Op: OpRead, PHYAddr: phyAddr, Reg: reg, Data: v}) {
					t.Fatalf("read decode mismatch: %+v", frm)
				}
				got, err := DecodeRead(rd)
				if err != nil || got != v {
					t.Fatalf("DecodeRead=%#x,%v want %#x", got, err, v)
				}
			}
		}
	}
}

func TestDecodeFrameErrors(t *testing.T) {
	rd := BuildRead(nil, 1, 2)
	if _, err := DecodeFrame(rd[:HeaderCycles-1]); err == nil {
		t.Error("short frame accepted")
	}
	bad := append([]Cycle{}, rd...)
	bad[3] = CycleOE
	if _, err := DecodeFrame(bad); err == nil {
		t.Error("broken preamble accepted")
	}
	bad = append([]Cycle{}, rd...)
	bad[32] |= CycleOut
	if _, err := DecodeFrame(bad); err == nil {
		t.Error("bad start code accepted")
	}
	bad = append([]Cycle{}, rd...)
	bad[50] = CycleOE
	if _, err := DecodeFrame(bad); err == nil {
		t.Error("driven read data accepted")
	}
	if _, err := DecodeRead(rd[:63]); err == nil {
		t.Error("DecodeRead accepted 63 cycles")
	}
}

func TestAppendCycles(t *testing.T) {
	cycles := BuildWrite(nil, 0, 0, 0xffff)
	dump := string(AppendCycles(nil, cycles))
	lines := strings.Split(strings.TrimSuffix(dump, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines", len(lines))
	}
	prefixes := []string{"BIT#:", "MDOE:", "MDO :", "MDI :"}
	for i, line := range lines {
		if !strings.HasPrefix(line, prefixes[i]) {
			t.Errorf("line %d=%q", i, line)
		}
		if len(line) != 5+WriteCycles {
			t.Errorf("line %d has %d columns", i, len(line)-5)
		}
	}
	if !strings.HasPrefix(lines[0], "BIT#:0123456789012") {
		t.Errorf("bad index row %q", lines[0])
	}
	if strings.Contains(lines[3], "1") {
		t.Error("MDI row has samples in an unexecuted frame")
	}
}

// portPHY is a PHY attached to an MII port. It decodes frames as they are
// clocked in and drives MDI for reads addressed to it.
type portPHY struct {
	t       *testing.T
	addr    uint8
	regs    [32]uint16
	cycles  []Cycle
	frm     Frame
	lastClk bool
	lastOE  bool
	mdi     bool
	begins  int
	ends    int
	frames  []Frame
}

func (p *portPHY) BeginMII() {
	p.begins++
	p.cycles = p.cycles[:0]
}

func (p *portPHY) DriveMII(clk, oe, out bool) {
	rising := clk && !p.lastClk
	p.lastClk, p.lastOE = clk, oe
	if !rising {
		return
	}
	var c Cycle
	if oe {
		c |= CycleOE
	}
	if out {
		c |= CycleOut
	}
	p.cycles = append(p.cycles, c)
	idx := len(p.cycles) - 1
	p.mdi = false
	if idx == HeaderCycles-1 {
		frm, err := DecodeHeader(p.cycles)
		if err != nil {
			p.t.Errorf("header decode: %v", err)
		}
		p.frm = frm
	}
	if idx < HeaderCycles {
		return
	}
	if p.frm.PHYAddr != p.addr {
		p.mdi = true // Pulled up, nobody drives.
		return
	}
	switch p.frm.Op {
	case OpRead:
		if idx >= readDataStart && idx < readDataStart+16 {
			p.mdi = p.regs[p.frm.Reg]&(0x8000>>(idx-readDataStart)) != 0
		}
	case OpWrite:
		if idx == WriteCycles-1 {
			frm, err := DecodeFrame(p.cycles)
			if err != nil {
				p.t.Errorf("write decode: %v", err)
			}
			p.regs[frm.Reg] = frm.Data
			p.frames = append(p.frames, frm)
		}
	}
}

func (p *portPHY) SampleMII() bool { return p.mdi }

func (p *portPHY) EndMII() {
	p.ends++
	if p.lastClk || p.lastOE {
		p.t.Error("port not idle at end of frame")
	}
}

func TestMIIBitBang(t *testing.T) {
	port := &portPHY{t: t, addr: 0}
	port.regs[AddrBMSR] = 0x7809
	clk := ltesto.NewFakeClock()
	var mii MIIBitBang
	mii.Configure(port, clk, 0, nil)

	v, err := mii.Read(0, 0, AddrBMSR)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x7809 {
		t.Errorf("read %#x, want 0x7809", v)
	}
	// Two half periods per cycle plus the idle half period.
	if clk.Delays != 2*ReadCycles+1 || clk.Slept != (2*ReadCycles+1)*DefaultHalfPeriod {
		t.Errorf("read used %d delays totalling %s", clk.Delays, clk.Slept)
	}
	err = mii.Write(0, 0, RegIntMask, uint16(IntMaskDefault))
	if err != nil {
		t.Fatal(err)
	}
	if port.regs[RegIntMask] != 0x3fc0 {
		t.Errorf("mask register=%#x", port.regs[RegIntMask])
	}
	if port.begins != 2 || port.ends != 2 {
		t.Errorf("begins=%d ends=%d", port.begins, port.ends)
	}
	// Absent PHY reads as all ones.
	v, _ = mii.Read(7, 0, AddrBMSR)
	if v != 0xffff {
		t.Errorf("absent PHY read %#x", v)
	}
	if _, err = mii.Read(0, 1, 0); err == nil {
		t.Error("clause 45 read accepted")
	}
	if err = mii.Write(0, 0, 32, 0); err == nil {
		t.Error("register 32 accepted")
	}
}

func TestDetectOverMII(t *testing.T) {
	port := &portPHY{t: t, addr: 3}
	port.regs[regPhyId1] = 0x0016
	port.regs[regPhyId2] = 0xf841
	var mii MIIBitBang
	mii.Configure(port, ltesto.NewFakeClock(), 0, nil)
	addr, model, err := Detect(&mii)
	if err != nil {
		t.Fatal(err)
	}
	if addr != 3 || model != ModelLAN83C183 {
		t.Errorf("Detect=%d,%s", addr, model)
	}
}

package hwsim

import (
	"github.com/soypat/lan91c/phy"
	"github.com/soypat/lan91c/regbank"
)

// Power-on values of the internal PHY.
const (
	DefaultPHYID1 = 0x0016
	DefaultPHYID2 = 0xf841
	DefaultCaps   = phy.BMSR100Full | phy.BMSR100Half | phy.BMSR10Full | phy.BMSR10Half | phy.BMSRANCap | phy.BMSRExtCap

	bmcrPowerOn = uint16(phy.BMCRANEnable | phy.BMCRSpeed100)
)

// PHYConfig sets the behaviour of the internal PHY.
type PHYConfig struct {
	// Absent leaves the management data line undriven: every read returns
	// all ones and writes are ignored.
	Absent bool
	// ID1 and ID2 replace the identifier registers when non-zero.
	ID1, ID2 uint16
	// Caps are the capability bits of the status register. Zero selects DefaultCaps.
	Caps phy.BMSR
	// ResetReads is the number of control register reads that still show
	// the reset bit after a reset command. Negative never completes.
	ResetReads int
	// AutonegReads is the number of status reads after a restart before
	// negotiation completes. Negative never completes.
	AutonegReads int
	// RemoteFaultReads is the number of status reads, counted from power on,
	// that report a remote fault while negotiation is running.
	RemoteFaultReads int
	// RemoteFault reports a remote fault together with a completed negotiation.
	RemoteFault bool
	// Partner is the link partner's advertisement. Zero selects all 10/100 modes.
	Partner phy.ANAR
}

// PHY models the LAN83C183 embedded in the chip. Management frames are
// reassembled from the line levels written to the management register and
// decoded on the rising edge of MCLK.
type PHY struct {
	cfg  PHYConfig
	addr uint8
	regs [32]uint16

	powered bool
	mdi     bool
	clk     bool
	cycles  []phy.Cycle
	frm     phy.Frame

	resetLeft   int
	anLeft      int
	faultLeft   int
	negotiating bool
	linked      bool
	irq         bool

	frames []phy.Frame
}

func (p *PHY) init(addr uint8, cfg PHYConfig) {
	if cfg.ID1 == 0 {
		cfg.ID1 = DefaultPHYID1
	}
	if cfg.ID2 == 0 {
		cfg.ID2 = DefaultPHYID2
	}
	if cfg.Caps == 0 {
		cfg.Caps = DefaultCaps
	}
	if cfg.Partner == 0 {
		cfg.Partner = phy.AdvertisementFor(DefaultCaps)
	}
	*p = PHY{cfg: cfg, addr: addr, powered: true, mdi: true, faultLeft: cfg.RemoteFaultReads}
	p.cycles = make([]phy.Cycle, 0, phy.WriteCycles)
	p.defaults()
}

func (p *PHY) defaults() {
	p.regs = [32]uint16{}
	p.regs[phy.AddrBMCR] = bmcrPowerOn
	p.regs[2] = p.cfg.ID1
	p.regs[3] = p.cfg.ID2
	p.regs[phy.AddrANAR] = uint16(phy.AdvertisementFor(p.cfg.Caps))
	p.negotiating = false
	p.linked = false
}

func (p *PHY) interrupt() bool { return p.irq }

func (p *PHY) ackInterrupt() { p.irq = false }

func (p *PHY) linkUp() bool { return p.powered && p.linked }

// lines is called with every value written to the management register.
func (p *PHY) lines(v uint16) {
	clk := v&regbank.MgmtMCLK != 0
	rising := clk && !p.clk
	p.clk = clk
	if !rising {
		return
	}
	var c phy.Cycle
	if v&regbank.MgmtMDOE != 0 {
		c |= phy.CycleOE
	}
	if v&regbank.MgmtMDO != 0 {
		c |= phy.CycleOut
	}
	p.cycles = append(p.cycles, c)
	p.clockEdge(len(p.cycles) - 1)
}

func (p *PHY) clockEdge(idx int) {
	const readData = phy.HeaderCycles + 1
	p.mdi = true // Pulled up while nobody drives.
	if idx == phy.HeaderCycles-1 {
		frm, err := phy.DecodeHeader(p.cycles)
		if err != nil {
			// Not a frame: resynchronise on the next preamble.
			p.cycles = p.cycles[:0]
			return
		}
		p.frm = frm
		if frm.Op == phy.OpRead && p.responds() {
			p.frm.Data = p.read(frm.Reg)
		}
		return
	}
	if idx < phy.HeaderCycles || !p.responds() {
		p.finish(idx)
		return
	}
	if p.frm.Op == phy.OpRead {
		p.mdi = false
		if idx >= readData && idx < readData+16 {
			p.mdi = p.frm.Data&(0x8000>>(idx-readData)) != 0
		}
	}
	p.finish(idx)
}

// finish ends the frame after its last cycle.
func (p *PHY) finish(idx int) {
	switch {
	case idx < phy.HeaderCycles:
		return
	case p.frm.Op == phy.OpRead && idx == phy.ReadCycles-1:
		if p.responds() {
			p.frames = append(p.frames, p.frm)
		}
	case p.frm.Op == phy.OpWrite && idx == phy.WriteCycles-1:
		frm, err := phy.DecodeFrame(p.cycles)
		if err == nil && p.responds() {
			p.frames = append(p.frames, frm)
			p.write(frm.Reg, frm.Data)
		}
	default:
		return
	}
	p.cycles = p.cycles[:0]
}

func (p *PHY) responds() bool {
	return !p.cfg.Absent && p.frm.PHYAddr == p.addr
}

func (p *PHY) read(reg uint8) uint16 {
	switch reg {
	case phy.AddrBMCR:
		if p.resetLeft > 0 {
			p.resetLeft--
			if p.resetLeft == 0 {
				p.defaults()
			}
			return uint16(phy.BMCRReset)
		} else if p.resetLeft < 0 {
			return uint16(phy.BMCRReset)
		}
	case phy.AddrBMSR:
		return uint16(p.status())
	case phy.RegIntStat:
		v := p.regs[reg]
		p.regs[reg] = 0
		p.irq = false
		return v
	}
	return p.regs[reg]
}

func (p *PHY) status() phy.BMSR {
	s := p.cfg.Caps
	switch {
	case p.linked:
		s |= phy.BMSRANComplete | phy.BMSRLinkStatus
		if p.cfg.RemoteFault {
			s |= phy.BMSRRemoteFault
		}
	case !p.negotiating:
	case p.faultLeft > 0:
		p.faultLeft--
		s |= phy.BMSRRemoteFault
	case p.anLeft > 0:
		p.anLeft--
	case p.anLeft == 0:
		p.negotiating = false
		p.linked = true
		p.regs[phy.AddrANLPAR] = uint16(p.cfg.Partner | phy.ANARAck)
		p.event(phy.IntSpdDet | phy.IntDplxDet)
		return p.status()
	}
	return s
}

func (p *PHY) event(src phy.IntMask) {
	p.regs[phy.RegIntStat] |= uint16(src | phy.IntInt)
	if uint16(src)&^p.regs[phy.RegIntMask] != 0 {
		p.irq = true
	}
}

func (p *PHY) write(reg uint8, v uint16) {
	switch reg {
	case phy.AddrBMCR:
		ctl := phy.BMCR(v)
		if ctl&phy.BMCRReset != 0 {
			p.defaults()
			p.resetLeft = p.cfg.ResetReads
			return
		}
		if ctl&phy.BMCRANEnable != 0 && ctl&phy.BMCRANRestart != 0 {
			p.negotiating = true
			p.linked = false
			p.anLeft = p.cfg.AutonegReads
		}
		p.regs[reg] = v &^ uint16(phy.BMCRANRestart)
		return
	case phy.AddrBMSR, 2, 3, phy.AddrANLPAR, phy.RegIntStat:
		return // Read only.
	}
	p.regs[reg] = v
}

// PHYView gives tests access to the internal PHY. Every method locks the chip.
type PHYView struct {
	c *Chip
}

// Frames returns the management frames addressed to the PHY so far.
func (v *PHYView) Frames() []phy.Frame {
	v.c.lock()
	defer v.c.unlock()
	return append([]phy.Frame(nil), v.c.phy.frames...)
}

// Writes returns the write frames addressed to the PHY so far.
func (v *PHYView) Writes() (writes []phy.Frame) {
	v.c.lock()
	defer v.c.unlock()
	for _, frm := range v.c.phy.frames {
		if frm.Op == phy.OpWrite {
			writes = append(writes, frm)
		}
	}
	return writes
}

// Reg returns a PHY register without read side effects.
func (v *PHYView) Reg(reg uint8) uint16 {
	v.c.lock()
	defer v.c.unlock()
	return v.c.phy.regs[reg&31]
}

// LinkUp reports whether negotiation completed and the PHY is powered.
func (v *PHYView) LinkUp() bool {
	v.c.lock()
	defer v.c.unlock()
	return v.c.phy.linkUp()
}

// Negotiating reports whether autonegotiation is in progress.
func (v *PHYView) Negotiating() bool {
	v.c.lock()
	defer v.c.unlock()
	return v.c.phy.negotiating
}

// DropLink takes the link down and raises the link failure interrupt.
func (v *PHYView) DropLink() {
	v.c.lock()
	defer v.c.unlock()
	v.c.phy.linked = false
	v.c.phy.event(phy.IntLnkFail)
}

package smc

import "github.com/soypat/lan91c/regbank"

// miiPort drives the management lines of the bank 3 MGMT register. The bank
// selected before a frame is restored after it.
type miiPort struct {
	regs  *regbank.File
	saved regbank.Bank
	base  uint16 // MGMT bits other than the management lines.
}

func (p *miiPort) BeginMII() {
	p.saved = p.regs.Selected()
	p.regs.Select(regbank.Bank3)
	p.base = p.regs.Read16(regbank.MGMT) &^ regbank.MgmtLines
}

func (p *miiPort) DriveMII(clock, oe, out bool) {
	v := p.base
	if clock {
		v |= regbank.MgmtMCLK
	}
	if oe {
		v |= regbank.MgmtMDOE
	}
	if out {
		v |= regbank.MgmtMDO
	}
	p.regs.Write16(regbank.MGMT, v)
}

func (p *miiPort) SampleMII() bool {
	return p.regs.Read16(regbank.MGMT)&regbank.MgmtMDI != 0
}

func (p *miiPort) EndMII() {
	p.regs.Select(p.saved)
}

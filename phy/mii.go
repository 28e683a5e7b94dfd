package phy

import (
	"errors"
	"strconv"
)

// Cycle describes one clock period of a bit-banged MII management frame.
// CycleOE and CycleOut are what the station drives during the low half of the
// clock; CycleIn is what was sampled on MDI after the rising edge.
type Cycle uint8

const (
	CycleOut Cycle = 1 << iota // MDO driven high.
	CycleIn                    // MDI sampled high.
	_
	CycleOE // MDO output enabled, station drives the line.
)

const (
	mdioRead  = 0b10
	mdioWrite = 0b01

	preambleBits = 32
	// HeaderCycles is the number of cycles before the turnaround field:
	// preamble, start, opcode, PHY address and register address.
	HeaderCycles = preambleBits + 2 + 2 + 5 + 5
	// ReadCycles is the length of a read frame: header, one undriven turnaround
	// bit, 16 sampled data bits and a final idle bit.
	ReadCycles = HeaderCycles + 1 + 16 + 1
	// WriteCycles is the length of a write frame: header, two undriven
	// turnaround bits, 16 driven data bits and a final idle bit.
	WriteCycles = HeaderCycles + 2 + 16 + 1

	readDataStart  = HeaderCycles + 1
	writeDataStart = HeaderCycles + 2
)

// Op is the opcode field of a Clause 22 management frame.
type Op uint8

const (
	OpRead  Op = mdioRead
	OpWrite Op = mdioWrite
)

// Frame is a decoded management frame.
type Frame struct {
	Op      Op
	PHYAddr uint8
	Reg     uint8
	Data    uint16
}

var (
	errFrameLength   = errors.New("phy: bad MII frame length")
	errFramePreamble = errors.New("phy: bad MII preamble")
	errFrameStart    = errors.New("phy: bad MII start code")
	errFrameOp       = errors.New("phy: bad MII opcode")
	errFrameDriven   = errors.New("phy: station drove MDIO during turnaround or read data")
)

// BuildRead appends the 64 cycles of a read of register reg of the PHY at
// phyAddr to dst. The returned data cycles carry no CycleIn flags; an executor
// fills those in while clocking the frame.
func BuildRead(dst []Cycle, phyAddr, reg uint8) []Cycle {
	dst = appendHeader(dst, mdioRead, phyAddr, reg)
	// Turnaround, 16 data bits and final bit, all undriven.
	for i := 0; i < 1+16+1; i++ {
		dst = append(dst, 0)
	}
	return dst
}

// BuildWrite appends the 65 cycles of a write of value to register reg of the
// PHY at phyAddr to dst.
func BuildWrite(dst []Cycle, phyAddr, reg uint8, value uint16) []Cycle {
	dst = appendHeader(dst, mdioWrite, phyAddr, reg)
	dst = append(dst, 0, 0) // Turnaround, undriven.
	dst = appendBits(dst, uint32(value), 16)
	return append(dst, 0) // Final bit, undriven.
}

func appendHeader(dst []Cycle, op uint8, phyAddr, reg uint8) []Cycle {
	for i := 0; i < preambleBits; i++ {
		dst = append(dst, CycleOE|CycleOut)
	}
	dst = appendBits(dst, 0b01, 2) // Start of frame.
	dst = appendBits(dst, uint32(op), 2)
	dst = appendBits(dst, uint32(phyAddr), 5)
	dst = appendBits(dst, uint32(reg), 5)
	return dst
}

// appendBits appends the n low bits of v, most significant first.
func appendBits(dst []Cycle, v uint32, n int) []Cycle {
	for i := n - 1; i >= 0; i-- {
		c := CycleOE
		if v&(1<<i) != 0 {
			c |= CycleOut
		}
		dst = append(dst, c)
	}
	return dst
}

// DecodeRead assembles the 16 bits sampled during the data field of an
// executed read frame, MSB first.
func DecodeRead(cycles []Cycle) (uint16, error) {
	if len(cycles) != ReadCycles {
		return 0, errFrameLength
	}
	return sampledBits(cycles[readDataStart : readDataStart+16]), nil
}

// DecodeHeader decodes the first HeaderCycles cycles of a frame as driven by
// the station. It is the reference decoder used by PHY models.
func DecodeHeader(cycles []Cycle) (Frame, error) {
	if len(cycles) < HeaderCycles {
		return Frame{}, errFrameLength
	}
	for _, c := range cycles[:preambleBits] {
		if c != CycleOE|CycleOut {
			return Frame{}, errFramePreamble
		}
	}
	if drivenBits(cycles[preambleBits:preambleBits+2]) != 0b01 {
		return Frame{}, errFrameStart
	}
	off := preambleBits + 2
	frm := Frame{
		Op:      Op(drivenBits(cycles[off : off+2])),
		PHYAddr: uint8(drivenBits(cycles[off+2 : off+7])),
		Reg:     uint8(drivenBits(cycles[off+7 : off+12])),
	}
	if frm.Op != OpRead && frm.Op != OpWrite {
		return frm, errFrameOp
	}
	return frm, nil
}

// DecodeFrame decodes a complete executed frame. For reads Data holds the
// sampled bits, for writes the driven value.
func DecodeFrame(cycles []Cycle) (Frame, error) {
	frm, err := DecodeHeader(cycles)
	if err != nil {
		return frm, err
	}
	switch frm.Op {
	case OpRead:
		if len(cycles) != ReadCycles {
			return frm, errFrameLength
		}
		for _, c := range cycles[HeaderCycles:] {
			if c&CycleOE != 0 {
				return frm, errFrameDriven
			}
		}
		frm.Data = sampledBits(cycles[readDataStart : readDataStart+16])
	case OpWrite:
		if len(cycles) != WriteCycles {
			return frm, errFrameLength
		}
		if cycles[HeaderCycles]&CycleOE != 0 || cycles[HeaderCycles+1]&CycleOE != 0 {
			return frm, errFrameDriven
		}
		frm.Data = uint16(drivenBits(cycles[writeDataStart : writeDataStart+16]))
	}
	return frm, nil
}

func drivenBits(cycles []Cycle) (v uint32) {
	for _, c := range cycles {
		v <<= 1
		if c&CycleOut != 0 {
			v |= 1
		}
	}
	return v
}

func sampledBits(cycles []Cycle) (v uint16) {
	for _, c := range cycles {
		v <<= 1
		if c&CycleIn != 0 {
			v |= 1
		}
	}
	return v
}

// AppendCycles appends a four row dump of cycles to dst: bit index modulo 10,
// then the MDOE, MDO and MDI lines.
func AppendCycles(dst []byte, cycles []Cycle) []byte {
	dst = append(dst, "BIT#:"...)
	for i := range cycles {
		dst = strconv.AppendInt(dst, int64(i%10), 10)
	}
	rows := [...]struct {
		name string
		bit  Cycle
	}{
		{"\nMDOE:", CycleOE},
		{"\nMDO :", CycleOut},
		{"\nMDI :", CycleIn},
	}
	for _, row := range rows {
		dst = append(dst, row.name...)
		for _, c := range cycles {
			if c&row.bit != 0 {
				dst = append(dst, '1')
			} else {
				dst = append(dst, '0')
			}
		}
	}
	return append(dst, '\n')
}

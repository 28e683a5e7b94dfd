package phy

import (
	"errors"
	"log/slog"
	"time"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
)

var _ MDIOBus = (*MIIBitBang)(nil) // compile time guarantee of interface implementation.

// MIIPort is the pin-level access an MII management executor needs. A port
// multiplexed onto a banked register window saves its bank selection in
// BeginMII and restores it in EndMII.
type MIIPort interface {
	// BeginMII prepares the port for a frame exchange.
	BeginMII()
	// DriveMII sets the clock, output enable and output data lines.
	DriveMII(clock, oe, out bool)
	// SampleMII returns the current level of the MDI line.
	SampleMII() bool
	// EndMII releases the port after the lines have been returned to idle.
	EndMII()
}

// DefaultHalfPeriod is the time the clock is held low and held high for each
// bit of a management frame.
const DefaultHalfPeriod = 50 * time.Microsecond

// MIIBitBang is a software clocked management station. Frames are built with
// BuildRead and BuildWrite and executed cycle by cycle on an MIIPort: for each
// cycle the data lines are driven with the clock low, the clock is raised and
// MDI is sampled before the next cycle. After the last cycle the lines return
// to idle (clock low, output disabled) for one more half period.
// Only Clause 22 framing is supported.
type MIIBitBang struct {
	port   MIIPort
	clk    lan91c.Clock
	half   time.Duration
	logger *slog.Logger
	buf    [WriteCycles]Cycle
}

var errClause45 = errors.New("phy: clause 45 framing not supported by MII bit-bang")

// Configure binds the executor to a port and time source. A zero halfPeriod
// selects DefaultHalfPeriod. logger may be nil; when set, every executed frame
// is dumped at trace level.
func (m *MIIBitBang) Configure(port MIIPort, clk lan91c.Clock, halfPeriod time.Duration, logger *slog.Logger) {
	if port == nil || clk == nil {
		panic("nil MII port or clock")
	}
	if halfPeriod <= 0 {
		halfPeriod = DefaultHalfPeriod
	}
	m.port = port
	m.clk = clk
	m.half = halfPeriod
	m.logger = logger
}

// Read reads a PHY register. devAddr must be zero.
func (m *MIIBitBang) Read(phyAddr, devAddr uint8, regAddr uint16) (uint16, error) {
	if devAddr != 0 {
		return 0, errClause45
	} else if phyAddr > 31 || regAddr > 31 {
		return 0, errInvalidPhyAddr
	}
	cycles := BuildRead(m.buf[:0], phyAddr, uint8(regAddr))
	m.execute(cycles)
	v, err := DecodeRead(cycles)
	m.trace("mii:read", cycles, phyAddr, uint8(regAddr), v)
	return v, err
}

// Write writes a PHY register. devAddr must be zero.
func (m *MIIBitBang) Write(phyAddr, devAddr uint8, regAddr, value uint16) error {
	if devAddr != 0 {
		return errClause45
	} else if phyAddr > 31 || regAddr > 31 {
		return errInvalidPhyAddr
	}
	cycles := BuildWrite(m.buf[:0], phyAddr, uint8(regAddr), value)
	m.execute(cycles)
	m.trace("mii:write", cycles, phyAddr, uint8(regAddr), value)
	return nil
}

// Exec clocks an arbitrary cycle sequence on the port, recording sampled MDI
// levels into cycles.
func (m *MIIBitBang) Exec(cycles []Cycle) {
	m.execute(cycles)
}

func (m *MIIBitBang) execute(cycles []Cycle) {
	m.port.BeginMII()
	for i, c := range cycles {
		oe, out := c&CycleOE != 0, c&CycleOut != 0
		m.port.DriveMII(false, oe, out)
		m.clk.Delay(m.half)
		m.port.DriveMII(true, oe, out)
		m.clk.Delay(m.half)
		if m.port.SampleMII() {
			cycles[i] |= CycleIn
		} else {
			cycles[i] &^= CycleIn
		}
	}
	// Return to idle: clock low, data low, output tristated.
	m.port.DriveMII(false, false, false)
	m.clk.Delay(m.half)
	m.port.EndMII()
}

func (m *MIIBitBang) trace(msg string, cycles []Cycle, phyAddr, reg uint8, value uint16) {
	if m.logger == nil || !internal.LogEnabled(m.logger, internal.LevelTrace) {
		return
	}
	internal.LogAttrs(m.logger, internal.LevelTrace, msg,
		slog.Uint64("phy", uint64(phyAddr)),
		slog.Uint64("reg", uint64(reg)),
		internal.SlogHex16("data", value),
		slog.String("stream", string(AppendCycles(nil, cycles))),
	)
}

// Package hwsim is a register level model of the SMSC LAN91C111 for testing
// drivers without hardware. A Chip implements regbank.Window: every register
// access goes through the same bank multiplexing, packet MMU, FIFOs and
// interrupt logic a driver sees on a real bus, and the internal PHY is
// reached only through the bit-banged management register.
//
// Knobs on Config inject the failure modes a driver must survive: an
// allocation interrupt that never sets, allocation failures, a transmitter
// that never drains, transmit errors, slow MMU completion and PHYs that never
// leave reset or never finish autonegotiation.
package hwsim

import (
	"errors"
	"sync"

	"github.com/soypat/lan91c/regbank"
)

const (
	// PacketSize is the size of one packet slot of on-chip memory.
	PacketSize = regbank.MemoryUnit
	// DefaultRevision is the revision register of a LAN91C111 rev 1.
	DefaultRevision = 0x3391
	// DefaultBaseAddr is the I/O base the BASE register reports by default.
	DefaultBaseAddr = 0x0c000300

	mgmtConstant = 0x3330 // Fixed high bits read from the management register.
	noPacket     = 0x80
)

// Config sets up a Chip. The zero value is a healthy chip with a blank
// individual address at DefaultBaseAddr.
type Config struct {
	// BaseAddr is the bus address the chip's BASE register decodes.
	BaseAddr uint32
	// Addr is the individual address as loaded from the EEPROM.
	Addr [6]byte
	// Revision is the revision register value. Zero selects DefaultRevision.
	Revision uint16
	// Signature replaces the high byte of the bank select register when non-zero.
	Signature uint16
	// Packets is the number of 2K packet slots. Zero selects 4 (8K of memory).
	Packets int
	// BusyReads is how many reads of the MMU command register report busy
	// after each command.
	BusyReads int
	// AllocIntBroken models a platform on which the allocation interrupt
	// status bit never sets even though allocation succeeds.
	AllocIntBroken bool
	// AllocFail makes every allocation complete with the failed flag set.
	AllocFail bool
	// TxStatusFail, when non-zero, is reported as the transmit status of
	// every frame instead of success. The transmitter is disabled after a
	// failed frame as on the real chip.
	TxStatusFail uint16
	// TxStall keeps enqueued frames in the transmit queue forever.
	TxStall bool
	// TxLatency is how many reads of the interrupt status register a frame
	// enqueued on an idle transmitter waits before it goes out, modelling
	// deferral and collision backoff.
	TxLatency int
	// Loopback delivers transmitted frames back to the receive path.
	Loopback bool
	// Wire receives every transmitted frame. It runs with the chip locked
	// and must not access the chip.
	Wire func(frame []byte)
	// OnIRQ is called whenever the interrupt line rises. It runs after the
	// chip is unlocked.
	OnIRQ func()
	// PHYAddr is the management address of the internal PHY.
	PHYAddr uint8
	// PHY configures the internal PHY model.
	PHY PHYConfig
}

// Counters of MMU and datapath events.
type Counters struct {
	Allocs       int // Allocation commands.
	AllocFailed  int // Allocations reported as failed.
	Releases     int // Receive packets removed and released.
	Removes      int // Receive packets removed without release.
	FreedPackets int // Packets freed by number.
	Enqueued     int // Transmit enqueue commands.
	MMUResets    int
	SoftResets   int
	Transmitted  int // Frames put on the wire.
	TxFailed     int // Frames with an error transmit status.
	Received     int // Frames queued to the receive FIFO.
	Dropped      int // Frames dropped with the receiver disabled.
	Overruns     int // Frames dropped for lack of memory.
	FIFOReads    int // Reads of the FIFO port register.
}

// TxRecord describes one frame put on the wire.
type TxRecord struct {
	Packet uint8
	// Raw is the packet memory as written by the driver: status word, byte
	// count word, data and the control word.
	Raw []byte
	// Frame is the frame data extracted from the envelope.
	Frame  []byte
	Status uint16
}

// Chip is a simulated LAN91C111. It is safe for concurrent use.
type Chip struct {
	mu  sync.Mutex
	cfg Config

	bank regbank.Bank
	regs [4][8]uint16 // Plain storage for registers without side effects.

	mem      [][PacketSize]byte
	used     []bool
	scratch  [PacketSize]byte
	pnr      uint8
	arr      uint8
	ptr      uint16
	busy     int
	txWait   int
	intStat  uint8 // Sticky interrupt bits. RCV and TX are derived from FIFOs.
	intMask  uint8
	txQueue  []uint8
	txDone   []uint8
	rxFIFO   []uint8
	irqLine  bool
	counters Counters
	sent     []TxRecord

	phy PHY
}

var _ regbank.Window = (*Chip)(nil)

var (
	errNoMemory   = errors.New("hwsim: no free packet memory")
	errRxDisabled = errors.New("hwsim: receiver disabled")
	errFrameSize  = errors.New("hwsim: frame does not fit a packet")
)

// New returns a powered up chip in its hardware reset state.
func New(cfg Config) *Chip {
	if cfg.Revision == 0 {
		cfg.Revision = DefaultRevision
	}
	if cfg.Signature == 0 {
		cfg.Signature = regbank.BSRSignature
	}
	if cfg.Packets <= 0 {
		cfg.Packets = 4
	}
	if cfg.BaseAddr == 0 {
		cfg.BaseAddr = DefaultBaseAddr
	}
	c := &Chip{
		cfg:  cfg,
		mem:  make([][PacketSize]byte, cfg.Packets),
		used: make([]bool, cfg.Packets),
	}
	c.phy.init(cfg.PHYAddr, cfg.PHY)
	// Registers loaded from EEPROM and unaffected by soft reset.
	c.regs[regbank.Bank1][regbank.CONFIG>>1] = 0xa0b1
	c.regs[regbank.Bank1][regbank.BASE>>1] = uint16(cfg.BaseAddr&0x3e0)<<3 | 0x0001
	for i := 0; i < 6; i += 2 {
		c.regs[regbank.Bank1][(regbank.ADDR0+i)>>1] = uint16(cfg.Addr[i]) | uint16(cfg.Addr[i+1])<<8
	}
	c.regs[regbank.Bank3][regbank.REV>>1] = cfg.Revision
	c.softReset()
	return c
}

// softReset returns the registers affected by RCR soft reset to defaults and
// empties packet memory.
func (c *Chip) softReset() {
	c.counters.SoftResets++
	b0 := &c.regs[regbank.Bank0]
	b0[regbank.TCR>>1] = 0
	b0[regbank.EPH>>1] = 0
	b0[regbank.RCR>>1] = 0
	b0[regbank.RPC>>1] = 0
	c.regs[regbank.Bank1][regbank.CTL>>1] = regbank.CTLPowerOn
	c.regs[regbank.Bank3][regbank.MGMT>>1] = 0
	c.intMask = 0
	c.mmuReset()
}

func (c *Chip) mmuReset() {
	for i := range c.used {
		c.used[i] = false
	}
	c.txQueue = c.txQueue[:0]
	c.txDone = c.txDone[:0]
	c.rxFIFO = c.rxFIFO[:0]
	c.txWait = 0
	c.intStat = regbank.IntTxEmpty
	c.arr = regbank.ARRFailed
}

// lock and unlock bracket every public entry point. unlock reports a rising
// interrupt line to OnIRQ outside the lock.
func (c *Chip) lock() { c.mu.Lock() }

func (c *Chip) unlock() {
	line := c.interrupts()&c.intMask != 0
	rise := line && !c.irqLine
	c.irqLine = line
	fn := c.cfg.OnIRQ
	c.mu.Unlock()
	if rise && fn != nil {
		fn()
	}
}

// interrupts returns the full interrupt status byte.
func (c *Chip) interrupts() uint8 {
	s := c.intStat
	if len(c.rxFIFO) > 0 {
		s |= regbank.IntRcv
	}
	if len(c.txDone) > 0 {
		s |= regbank.IntTx
	}
	if c.phy.interrupt() {
		s |= regbank.IntMD
	}
	return s
}

func (c *Chip) Read8(off uint8) uint8 {
	c.lock()
	defer c.unlock()
	if c.bank == regbank.Bank2 && off >= regbank.DATA && off < regbank.DATA+4 {
		var b [1]byte
		c.dataRead(b[:])
		return b[0]
	}
	v := c.read16(off &^ 1)
	return uint8(v >> (8 * (off & 1)))
}

func (c *Chip) Read16(off uint8) uint16 {
	c.lock()
	defer c.unlock()
	if off&1 != 0 {
		panic("hwsim: unaligned word read")
	}
	if c.bank == regbank.Bank2 && (off == regbank.DATA || off == regbank.DATA+2) {
		var b [2]byte
		c.dataRead(b[:])
		return uint16(b[0]) | uint16(b[1])<<8
	}
	return c.read16(off)
}

func (c *Chip) Read32(off uint8) uint32 {
	c.lock()
	defer c.unlock()
	if off&3 != 0 {
		panic("hwsim: unaligned long read")
	}
	if c.bank == regbank.Bank2 && off == regbank.DATA {
		var b [4]byte
		c.dataRead(b[:])
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return uint32(c.read16(off)) | uint32(c.read16(off+2))<<16
}

func (c *Chip) Write8(off uint8, v uint8) {
	c.lock()
	defer c.unlock()
	if c.bank == regbank.Bank2 {
		switch {
		case off >= regbank.DATA && off < regbank.DATA+4:
			c.dataWrite([]byte{v})
			return
		case off == regbank.PNR:
			c.pnr = v & regbank.PacketNumMask
			return
		case off == regbank.ARR:
			return // Read only.
		case off == regbank.INT:
			c.ack(v)
			return
		case off == regbank.IMASK:
			c.intMask = v
			return
		}
	}
	if off == regbank.BSR || off == regbank.BSR+1 {
		if off == regbank.BSR {
			c.bank = regbank.Bank(v & 3)
		}
		return
	}
	// Byte write to a plain word register: merge and apply as a word write.
	w := c.regs[c.bank][off>>1]
	sh := 8 * (off & 1)
	w = w&^(0xff<<sh) | uint16(v)<<sh
	c.write16(off&^1, w)
}

func (c *Chip) Write16(off uint8, v uint16) {
	c.lock()
	defer c.unlock()
	if off&1 != 0 {
		panic("hwsim: unaligned word write")
	}
	if c.bank == regbank.Bank2 && (off == regbank.DATA || off == regbank.DATA+2) {
		c.dataWrite([]byte{byte(v), byte(v >> 8)})
		return
	}
	c.write16(off, v)
}

func (c *Chip) Write32(off uint8, v uint32) {
	c.lock()
	defer c.unlock()
	if off&3 != 0 {
		panic("hwsim: unaligned long write")
	}
	if c.bank == regbank.Bank2 && off == regbank.DATA {
		c.dataWrite([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
		return
	}
	c.write16(off, uint16(v))
	c.write16(off+2, uint16(v>>16))
}

func (c *Chip) read16(off uint8) uint16 {
	if off == regbank.BSR {
		return c.cfg.Signature&0xff00 | uint16(c.bank)
	}
	switch c.bank {
	case regbank.Bank0:
		if off == regbank.MIR {
			return uint16(c.freePackets())<<8 | uint16(len(c.mem))
		}
	case regbank.Bank2:
		switch off {
		case regbank.MMUCR:
			if c.busy > 0 {
				c.busy--
				return regbank.MMUBusy
			}
			return 0
		case regbank.PNR:
			return uint16(c.pnr) | uint16(c.arr)<<8
		case regbank.FIFO:
			c.counters.FIFOReads++
			tx, rx := uint16(noPacket), uint16(noPacket)
			if len(c.txDone) > 0 {
				tx = uint16(c.txDone[0])
			}
			if len(c.rxFIFO) > 0 {
				rx = uint16(c.rxFIFO[0])
			}
			return tx | rx<<8
		case regbank.PTR:
			return c.ptr
		case regbank.INT:
			if c.txWait > 0 {
				c.txWait--
				c.drainTx()
			}
			return uint16(c.interrupts()) | uint16(c.intMask)<<8
		}
	case regbank.Bank3:
		if off == regbank.MGMT {
			v := mgmtConstant | c.regs[regbank.Bank3][off>>1]&^regbank.MgmtMDI
			if c.phy.mdi {
				v |= regbank.MgmtMDI
			}
			return v
		}
	}
	return c.regs[c.bank][off>>1]
}

func (c *Chip) write16(off uint8, v uint16) {
	if off == regbank.BSR {
		c.bank = regbank.Bank(v & 3)
		return
	}
	switch c.bank {
	case regbank.Bank0:
		switch off {
		case regbank.MIR, regbank.ECR, regbank.EPH:
			return // Read only.
		case regbank.RCR:
			if v&regbank.RCRSoftRst != 0 {
				c.softReset()
			}
		case regbank.TCR:
			c.regs[regbank.Bank0][off>>1] = v
			if v&regbank.TCREnable != 0 {
				// EPH status clears when the transmitter is re-enabled.
				c.intStat &^= regbank.IntEPH
			}
			c.drainTx()
			return
		}
	case regbank.Bank1:
		if off == regbank.CONFIG {
			c.phy.powered = v&regbank.ConfigEPHPowerEn != 0
		}
	case regbank.Bank2:
		switch off {
		case regbank.MMUCR:
			c.command(v)
		case regbank.PNR:
			c.pnr = uint8(v) & regbank.PacketNumMask
		case regbank.PTR:
			c.ptr = v
		case regbank.INT:
			c.ack(uint8(v))
			c.intMask = uint8(v >> 8)
		}
		return
	case regbank.Bank3:
		switch off {
		case regbank.MGMT:
			v &= regbank.MgmtLines | regbank.MgmtMskCRS100
			c.regs[regbank.Bank3][off>>1] = v
			c.phy.lines(v)
			return
		case regbank.REV:
			return
		}
	}
	c.regs[c.bank][off>>1] = v
}

// ack clears acknowledgeable interrupt bits. Acknowledging TX pops the
// transmit completion FIFO.
func (c *Chip) ack(v uint8) {
	if v&regbank.IntTx != 0 && len(c.txDone) > 0 {
		c.txDone = c.txDone[1:]
	}
	c.intStat &^= v & (regbank.IntTxEmpty | regbank.IntAlloc | regbank.IntRxOvrn | regbank.IntERcv)
	if v&regbank.IntMD != 0 {
		c.phy.ackInterrupt()
	}
}

// Counters returns a copy of the event counters.
func (c *Chip) Counters() Counters {
	c.lock()
	defer c.unlock()
	return c.counters
}

// Transmitted returns the frames put on the wire so far.
func (c *Chip) Transmitted() []TxRecord {
	c.lock()
	defer c.unlock()
	return append([]TxRecord(nil), c.sent...)
}

// Pointers returns the selected bank, packet number and pointer registers.
func (c *Chip) Pointers() (bank regbank.Bank, pnr uint8, ptr uint16) {
	c.lock()
	defer c.unlock()
	return c.bank, c.pnr, c.ptr
}

// Peek16 reads a plain register of any bank without side effects and
// without changing the bank selection.
func (c *Chip) Peek16(bank regbank.Bank, off uint8) uint16 {
	c.lock()
	defer c.unlock()
	switch {
	case bank == regbank.Bank2 && off == regbank.INT:
		return uint16(c.interrupts()) | uint16(c.intMask)<<8
	case bank == regbank.Bank0 && off == regbank.MIR:
		return uint16(c.freePackets())<<8 | uint16(len(c.mem))
	}
	return c.regs[bank][off>>1]
}

// HardwareAddr returns the individual address currently programmed.
func (c *Chip) HardwareAddr() (addr [6]byte) {
	c.lock()
	defer c.unlock()
	for i := 0; i < 6; i += 2 {
		w := c.regs[regbank.Bank1][(regbank.ADDR0+i)>>1]
		addr[i], addr[i+1] = byte(w), byte(w>>8)
	}
	return addr
}

// InterruptLine reports whether an unmasked interrupt is pending.
func (c *Chip) InterruptLine() bool {
	c.lock()
	defer c.unlock()
	return c.interrupts()&c.intMask != 0
}

// RxQueued returns the number of frames waiting in the receive FIFO.
func (c *Chip) RxQueued() int {
	c.lock()
	defer c.unlock()
	return len(c.rxFIFO)
}

// FreePackets returns the number of unallocated packet slots.
func (c *Chip) FreePackets() int {
	c.lock()
	defer c.unlock()
	return c.freePackets()
}

// PoweredDown reports whether the EPH power enable bit is clear.
func (c *Chip) PoweredDown() bool {
	c.lock()
	defer c.unlock()
	return !c.phy.powered
}

// PHY returns the internal PHY model. Its accessors lock the chip.
func (c *Chip) PHY() *PHYView { return &PHYView{c: c} }

package hwsim

import (
	"encoding/binary"

	"github.com/soypat/lan91c/ethernet"
	"github.com/soypat/lan91c/regbank"
)

func (c *Chip) freePackets() (n int) {
	for _, u := range c.used {
		if !u {
			n++
		}
	}
	return n
}

func (c *Chip) allocPacket() (uint8, bool) {
	for i, u := range c.used {
		if !u {
			c.used[i] = true
			return uint8(i), true
		}
	}
	return 0, false
}

func (c *Chip) freePacket(pn uint8) {
	if int(pn) < len(c.used) {
		c.used[pn] = false
	}
}

// command executes an MMU command written to MMUCR.
func (c *Chip) command(v uint16) {
	c.busy = c.cfg.BusyReads
	switch regbank.MMUCommand(v) {
	case regbank.MMUAlloc:
		c.counters.Allocs++
		pn, ok := c.allocPacket()
		switch {
		case c.cfg.AllocFail:
			if ok {
				c.freePacket(pn)
			}
			c.counters.AllocFailed++
			c.arr = regbank.ARRFailed
			c.intStat |= regbank.IntAlloc
		case !ok:
			// Allocation stays pending until memory frees up; never completes here.
			c.counters.AllocFailed++
			c.arr = regbank.ARRFailed
		default:
			c.arr = pn
			if !c.cfg.AllocIntBroken {
				c.intStat |= regbank.IntAlloc
			}
		}
	case regbank.MMUReset:
		c.counters.MMUResets++
		c.mmuReset()
	case regbank.MMURemove:
		if len(c.rxFIFO) > 0 {
			c.counters.Removes++
			c.rxFIFO = c.rxFIFO[1:]
		}
	case regbank.MMURelease:
		if len(c.rxFIFO) > 0 {
			c.counters.Releases++
			c.freePacket(c.rxFIFO[0])
			c.rxFIFO = c.rxFIFO[1:]
		}
	case regbank.MMUFreePkt:
		c.counters.FreedPackets++
		c.freePacket(c.pnr)
		for i, pn := range c.txDone {
			if pn == c.pnr {
				c.txDone = append(c.txDone[:i], c.txDone[i+1:]...)
				break
			}
		}
	case regbank.MMUEnqueue:
		c.counters.Enqueued++
		if len(c.txQueue) == 0 {
			c.txWait = c.cfg.TxLatency
		}
		c.txQueue = append(c.txQueue, c.pnr)
		c.drainTx()
	case regbank.MMUResetTxFi:
		c.txWait = 0
		c.txQueue = c.txQueue[:0]
		c.txDone = c.txDone[:0]
	}
}

// packetAt returns the memory the data register currently addresses.
func (c *Chip) packetAt() *[PacketSize]byte {
	pn := c.pnr
	if c.ptr&regbank.PTRRcv != 0 {
		if len(c.rxFIFO) == 0 {
			return &c.scratch
		}
		pn = c.rxFIFO[0]
	}
	if int(pn) >= len(c.mem) {
		return &c.scratch
	}
	return &c.mem[pn]
}

func (c *Chip) dataRead(dst []byte) {
	pkt := c.packetAt()
	off := int(c.ptr & regbank.PTROffMask)
	for i := range dst {
		dst[i] = pkt[(off+i)%PacketSize]
	}
	c.advance(len(dst))
}

func (c *Chip) dataWrite(src []byte) {
	pkt := c.packetAt()
	off := int(c.ptr & regbank.PTROffMask)
	for i, b := range src {
		pkt[(off+i)%PacketSize] = b
	}
	c.advance(len(src))
}

func (c *Chip) advance(n int) {
	if c.ptr&regbank.PTRAutoInc == 0 {
		return
	}
	off := (c.ptr + uint16(n)) & regbank.PTROffMask
	c.ptr = c.ptr&^regbank.PTROffMask | off
}

// drainTx transmits queued packets while the transmitter is enabled and
// powered. TX_EMPTY is raised when the queue runs dry and stays set until
// acknowledged.
func (c *Chip) drainTx() {
	if c.cfg.TxStall || c.txWait > 0 || !c.phy.powered || len(c.txQueue) == 0 {
		return
	}
	for len(c.txQueue) > 0 && c.regs[regbank.Bank0][regbank.TCR>>1]&regbank.TCREnable != 0 {
		pn := c.txQueue[0]
		c.txQueue = c.txQueue[1:]
		c.transmit(pn)
	}
	if len(c.txQueue) == 0 {
		c.intStat |= regbank.IntTxEmpty
	}
}

func (c *Chip) transmit(pn uint8) {
	if int(pn) >= len(c.mem) {
		return
	}
	pkt := &c.mem[pn]
	// Bit 0 of the byte count is ignored; odd lengths use the control byte.
	count := int(binary.LittleEndian.Uint16(pkt[2:4]) & regbank.LengthMask &^ 1)
	if count < 6 {
		count = 6
	}
	rec := TxRecord{
		Packet: pn,
		Raw:    append([]byte(nil), pkt[:count]...),
	}
	frame := append([]byte(nil), pkt[4:count-2]...)
	if pkt[count-1]&regbank.CtlOdd != 0 {
		frame = append(frame, pkt[count-2])
	}
	rec.Frame = frame
	status := uint16(regbank.TSSuccess)
	if c.cfg.TxStatusFail != 0 {
		status = c.cfg.TxStatusFail
	}
	if c.phy.linkUp() {
		status |= regbank.TSLinkOK
	}
	rec.Status = status
	binary.LittleEndian.PutUint16(pkt[0:2], status)
	c.regs[regbank.Bank0][regbank.EPH>>1] = status
	c.sent = append(c.sent, rec)
	c.counters.Transmitted++
	if c.cfg.Wire != nil {
		c.cfg.Wire(frame)
	}
	if status&regbank.TSSuccess == 0 {
		// Fatal transmit errors disable the transmitter and keep the packet
		// for the driver to inspect.
		c.counters.TxFailed++
		c.regs[regbank.Bank0][regbank.TCR>>1] &^= regbank.TCREnable
		c.txDone = append(c.txDone, pn)
		c.intStat |= regbank.IntEPH
	} else if c.regs[regbank.Bank1][regbank.CTL>>1]&regbank.CTLAutoRelease != 0 {
		c.freePacket(pn)
	} else {
		c.txDone = append(c.txDone, pn)
	}
	if c.cfg.Loopback {
		c.receive(frame, 0)
	}
}

// Inject delivers a frame from the wire to the receive path. The frame must
// not include the FCS; it is appended when the receiver keeps CRCs.
func (c *Chip) Inject(frame []byte) error {
	return c.InjectStatus(frame, 0)
}

// InjectStatus is like Inject but ORs extra bits, such as regbank.RSBadCRC,
// into the receive status word.
func (c *Chip) InjectStatus(frame []byte, status uint16) error {
	c.lock()
	defer c.unlock()
	return c.receive(frame, status)
}

func (c *Chip) receive(frame []byte, status uint16) error {
	rcr := c.regs[regbank.Bank0][regbank.RCR>>1]
	if rcr&regbank.RCRRxEn == 0 {
		c.counters.Dropped++
		return errRxDisabled
	}
	data := frame
	if rcr&regbank.RCRStripCRC == 0 {
		data = ethernet.AppendFCS(append([]byte(nil), frame...), frame)
	}
	if len(data)+6 > PacketSize {
		return errFrameSize
	}
	pn, ok := c.allocPacket()
	if !ok {
		c.counters.Overruns++
		c.intStat |= regbank.IntRxOvrn
		return errNoMemory
	}
	if len(frame) >= 6 {
		var dst [6]byte
		copy(dst[:], frame)
		switch {
		case dst == ethernet.BroadcastAddr():
			status |= regbank.RSBroadcast
		case ethernet.IsMulticastAddr(dst):
			status |= regbank.RSMulticast
		}
	}
	even := len(data) &^ 1
	count := even + 6
	ctl := uint16(0)
	if len(data)&1 != 0 {
		status |= regbank.RSOddFrame
		ctl = uint16(regbank.CtlOdd)<<8 | uint16(data[even])
	}
	pkt := &c.mem[pn]
	binary.LittleEndian.PutUint16(pkt[0:2], status)
	binary.LittleEndian.PutUint16(pkt[2:4], uint16(count))
	copy(pkt[4:], data[:even])
	binary.LittleEndian.PutUint16(pkt[4+even:], ctl)
	c.rxFIFO = append(c.rxFIFO, pn)
	c.counters.Received++
	return nil
}

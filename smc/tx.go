package smc

import (
	"fmt"
	"log/slog"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// Transmit copies frame into chip memory, enqueues it and waits up to
// TxTimeout for the transmit queue to drain. frame excludes the FCS, which the
// chip appends. Frames shorter than MinFrameLength are zero padded.
//
// On success the padded length is returned and the packet memory is reclaimed
// by the chip's auto-release. A zero count with a non-nil error means nothing
// was sent: ErrFrameTooLarge is returned without touching the chip, and
// allocation failures wrap ErrTransmitAllocation so the caller may retry.
// The packet number and pointer registers are restored on every return.
func (d *Device) Transmit(frame []byte) (int, error) {
	pages, err := Pages(len(frame))
	if err != nil {
		d.mu.Lock()
		d.stats.TxTooLarge++
		d.mu.Unlock()
		d.log.error("smc:tx-too-large", slog.Int("len", len(frame)))
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	snap := d.regs.Save()
	defer snap.Restore()

	pn, err := d.allocate(pages)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", lan91c.ErrTransmitAllocation, err)
	}
	d.regs.Write8(regbank.PNR, pn)
	d.regs.Write16(regbank.PTR, regbank.PTRAutoInc)
	env, _ := AppendEnvelope(d.txbuf[:0], frame)
	if d.cfg.Use32Bit {
		d.regs.WriteBlock32(env)
	} else {
		d.regs.WriteBlock(env)
	}
	// TX_EMPTY is sticky; a frame left queued by an earlier timeout may have
	// set it since.
	d.regs.Write8(regbank.INT, regbank.IntTxEmpty)
	d.enableInterrupts(regbank.IntTx | regbank.IntTxEmpty)
	d.log.traceFrame("smc:tx", frame, slog.Uint64("pn", uint64(pn)))
	d.regs.Write16(regbank.MMUCR, regbank.MMUEnqueue)

	policy := internal.Retry{Timeout: d.cfg.TxTimeout.duration(), Interval: d.cfg.MMUPoll.duration()}
	_, ok := policy.Poll(d.clk, func() bool {
		return d.regs.Read8(regbank.INT)&regbank.IntTxEmpty != 0
	})
	if !ok {
		d.waitMMU()
		d.stats.TxTimeouts++
		d.log.error("smc:tx-timeout", slog.Uint64("pn", uint64(pn)), slog.Duration("timeout", d.cfg.TxTimeout.duration()))
		return 0, lan91c.ErrTransmitTimeout
	}
	d.regs.Write8(regbank.INT, regbank.IntTxEmpty)
	d.waitMMU()
	n := max(len(frame), MinFrameLength)
	d.stats.TxFrames++
	d.stats.TxBytes += uint64(n)
	return n, nil
}

// enableInterrupts sets bits in the interrupt mask using a word access whose
// low byte acknowledges nothing.
func (d *Device) enableInterrupts(bits uint8) {
	mask := uint8(d.regs.Read16(regbank.INTREG) >> 8)
	d.regs.Write16(regbank.INTREG, uint16(mask|bits)<<8)
}

// disableInterrupts clears bits in the interrupt mask.
func (d *Device) disableInterrupts(bits uint8) {
	mask := uint8(d.regs.Read16(regbank.INTREG) >> 8)
	d.regs.Write16(regbank.INTREG, uint16(mask&^bits)<<8)
}

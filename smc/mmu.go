package smc

import (
	"log/slog"

	"github.com/soypat/lan91c"
	"github.com/soypat/lan91c/internal"
	"github.com/soypat/lan91c/regbank"
)

// The packet MMU routines below expect bank 2 to be selected and the device
// lock to be held.

// allocate requests a packet of the given number of 256 byte pages. The
// allocation interrupt status is polled AllocSpin times per attempt for up to
// AllocAttempts attempts; a completed allocation is acknowledged before the
// result register is read.
func (d *Device) allocate(pages uint8) (pn uint8, err error) {
	d.regs.Write16(regbank.MMUCR, regbank.MMUAlloc|uint16(pages)&regbank.MMUPagesMask)
	policy := internal.Retry{Attempts: d.cfg.AllocAttempts, Spin: d.cfg.AllocSpin}
	attempts, ok := policy.Poll(d.clk, func() bool {
		return d.regs.Read8(regbank.INT)&regbank.IntAlloc != 0
	})
	d.stats.AllocAttempts += uint64(attempts)
	if !ok {
		d.stats.AllocExhausted++
		d.log.warn("smc:alloc-exhausted", internal.SlogPages(pages), slog.Int("attempts", attempts))
		return 0, lan91c.ErrAllocationExhausted
	}
	d.regs.Write8(regbank.INT, regbank.IntAlloc)
	arr := d.regs.Read8(regbank.ARR)
	if arr&regbank.ARRFailed != 0 {
		d.stats.AllocFailed++
		d.log.warn("smc:alloc-failed", internal.SlogPages(pages), slog.Uint64("arr", uint64(arr)))
		return 0, lan91c.ErrAllocationFailed
	}
	pn = arr & regbank.PacketNumMask
	d.log.trace("smc:alloc", internal.SlogPages(pages), slog.Uint64("pn", uint64(pn)), slog.Int("attempts", attempts))
	return pn, nil
}

// waitMMU blocks until the MMU busy flag clears. Completion is guaranteed by
// the chip so there is no timeout.
func (d *Device) waitMMU() {
	d.stats.MMUWaits += uint64(internal.WaitUntil(d.clk, d.cfg.MMUPoll.duration(), func() bool {
		return d.regs.Read16(regbank.MMUCR)&regbank.MMUBusy == 0
	}))
}

// release removes the packet at the head of the receive FIFO and returns its
// memory to the free pool.
func (d *Device) release() {
	d.waitMMU()
	d.regs.Write16(regbank.MMUCR, regbank.MMURelease)
	d.waitMMU()
}

// free returns packet pn to the free pool. The packet number register is left
// pointing at pn.
func (d *Device) free(pn uint8) {
	d.regs.Write8(regbank.PNR, pn)
	d.regs.Write16(regbank.MMUCR, regbank.MMUFreePkt)
	d.waitMMU()
}
